package domain

import (
	"sort"
	"time"
)

const (
	FieldEmail         = "email"
	FieldAgreeToEmails = "agreeToEmails"

	// MaxEmailLength vale para o e-mail já normalizado.
	MaxEmailLength = 254
)

// SignupRequest é uma inscrição já validada e normalizada. Não é persistida.
type SignupRequest struct {
	Email         string `json:"email"`
	AgreeToEmails bool   `json:"agreeToEmails"`
}

// FieldErrors mapeia o caminho do campo para a mensagem legível.
type FieldErrors map[string]string

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Only informa se field é o único campo com erro.
func (e FieldErrors) Only(field string) bool {
	return len(e) == 1 && e.Has(field)
}

// First devolve a primeira mensagem em ordem estável: email, agreeToEmails,
// depois o resto em ordem alfabética.
func (e FieldErrors) First() string {
	for _, f := range e.Fields() {
		return e[f]
	}
	return ""
}

func (e FieldErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, f := range []string{FieldEmail, FieldAgreeToEmails} {
		if e.Has(f) {
			out = append(out, f)
		}
	}
	rest := make([]string, 0, len(e))
	for f := range e {
		if f != FieldEmail && f != FieldAgreeToEmails {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// WebhookPayload é o que vai para a automação externa.
type WebhookPayload struct {
	Email                  string `json:"email"`
	Product                string `json:"product"`
	IsAgreedToReceiveMails bool   `json:"isAgreedToReceiveMails"`
}

// WebhookReply é a resposta esperada da automação externa.
type WebhookReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// APIResponse cobre os dois formatos de POST /api/waitlist:
// sucesso {success, message, data} e falha {success, error, code, details}.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *SignupData `json:"data,omitempty"`

	Error   string      `json:"error,omitempty"`
	Code    ErrorCode   `json:"code,omitempty"`
	Details FieldErrors `json:"details,omitempty"`
}

type SignupData struct {
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

// Health é a resposta de GET /api/waitlist.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Timestamp formata no padrão ISO-8601 em UTC com milissegundos.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
