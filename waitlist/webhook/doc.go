// Package webhook é o cliente HTTP de saída da waitlist: POST de JSON para a
// automação externa com prazo, retentativas e erros classificados pela
// taxonomia de domain.ErrorCode.
package webhook
