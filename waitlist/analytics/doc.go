// Package analytics registra eventos do formulário somente com o
// consentimento de cookies aceito.
package analytics
