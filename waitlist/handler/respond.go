package handler

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	rldomain "waitlist-gateway/middleware/ratelimit/domain"
	"waitlist-gateway/waitlist/domain"

	"github.com/rs/zerolog"
)

// Textos fixos devolvidos ao visitante. Nada vindo de erro interno entra aqui.
const (
	MsgInvalidJSON      = "Invalid JSON in request body"
	MsgValidationFailed = "Validation failed"
	MsgConsentRequired  = "Email consent is required to join the waitlist"
	MsgTooManyRequests  = "Too many requests. Please try again later."
	MsgUnavailable      = "Service temporarily unavailable"
	MsgAlreadyExists    = "This email is already on the waitlist"
	MsgTimeout          = "Request timed out. Please try again."
	MsgUpstreamBusy     = "Service temporarily overloaded. Please try again later."
	MsgWebhookFailed    = "Failed to process signup"
	MsgJoined           = "Successfully joined the waitlist!"
	MsgInternal         = "Internal server error"
	MsgMethodNotAllowed = "Method not allowed"
	MsgNotFound         = "Not found"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code domain.ErrorCode, msg string, details domain.FieldErrors) {
	writeJSON(w, status, domain.APIResponse{
		Success: false,
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// RateLimited é o RejectFunc do guarda global: mesma resposta 429 da rota de
// inscrição, para o formulário tratar os dois casos igual.
func RateLimited(w http.ResponseWriter, _ *http.Request, _ rldomain.Decision) {
	writeError(w, http.StatusTooManyRequests, domain.CodeRateLimited, MsgTooManyRequests, nil)
}

// Overloaded responde quando o limite de concorrência não libera vaga.
func Overloaded(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusServiceUnavailable, domain.CodeServer, MsgUnavailable, nil)
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, domain.CodeUnknown, MsgMethodNotAllowed, nil)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, domain.CodeUnknown, MsgNotFound, nil)
}

// Recover é o pega-tudo externo: qualquer pânico vira 500 genérico em JSON.
// O detalhe (valor e stack) só vai para o log.
func Recover(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("handler panic")
				writeError(w, http.StatusInternalServerError, domain.CodeServer, MsgInternal, nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
