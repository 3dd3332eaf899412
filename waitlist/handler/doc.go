// Package handler é a borda HTTP da waitlist: POST /api/waitlist recebe a
// inscrição e GET /api/waitlist responde a sonda de saúde.
//
// Toda falha sai no formato {success:false, error, code, details?}; erros
// internos ficam no log.
package handler
