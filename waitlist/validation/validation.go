package validation

import (
	"regexp"
	"strings"

	"waitlist-gateway/waitlist/domain"
)

const (
	MsgEmailRequired = "Email address is required"
	MsgEmailInvalid  = "Please enter a valid email address"
	MsgEmailTooLong  = "Email address is too long"
	MsgConsent       = "You must agree to receive emails to join the waitlist"
	MsgNotAnObject   = "Expected an object with email and agreeToEmails"
)

// Mesma gramática de e-mail usada pelo formulário do site. As regras
// "não começa com ponto" e "sem pontos seguidos" ficam fora da regex (RE2 não
// tem lookahead) e são checadas à parte.
var emailRe = regexp.MustCompile(`(?i)^[a-z0-9_'+\-.]*[a-z0-9_+\-]@([a-z0-9][a-z0-9\-]*\.)+[a-z]{2,}$`)

// Validate aplica as regras de inscrição sobre um valor JSON já decodificado.
//
// Servidor e cliente chamam esta mesma função; o servidor nunca confia na
// validação do cliente. Entrada com formato inesperado vira erro de campo,
// nunca pânico.
func Validate(input any) (domain.SignupRequest, domain.FieldErrors) {
	obj, ok := input.(map[string]any)
	if !ok {
		return domain.SignupRequest{}, domain.FieldErrors{"": MsgNotAnObject}
	}

	errs := domain.FieldErrors{}
	email, msg := checkEmail(obj[domain.FieldEmail])
	if msg != "" {
		errs[domain.FieldEmail] = msg
	}
	if agree, isBool := obj[domain.FieldAgreeToEmails].(bool); !isBool || !agree {
		errs[domain.FieldAgreeToEmails] = MsgConsent
	}

	if len(errs) > 0 {
		return domain.SignupRequest{}, errs
	}
	return domain.SignupRequest{Email: email, AgreeToEmails: true}, nil
}

// ValidateForm é a entrada do formulário: monta o mesmo objeto que vai na
// requisição e passa por Validate.
func ValidateForm(email string, agree bool) (domain.SignupRequest, domain.FieldErrors) {
	return Validate(map[string]any{
		domain.FieldEmail:         email,
		domain.FieldAgreeToEmails: agree,
	})
}

// ConsentDeclined informa se o único problema da entrada é agreeToEmails
// explicitamente false.
func ConsentDeclined(input any, errs domain.FieldErrors) bool {
	obj, ok := input.(map[string]any)
	if !ok || !errs.Only(domain.FieldAgreeToEmails) {
		return false
	}
	agree, isBool := obj[domain.FieldAgreeToEmails].(bool)
	return isBool && !agree
}

// Ordem: presença, gramática, tamanho, normalização. Primeira falha vence.
func checkEmail(v any) (string, string) {
	raw, ok := v.(string)
	if !ok {
		return "", MsgEmailRequired
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", MsgEmailRequired
	}
	if !IsEmail(trimmed) {
		return "", MsgEmailInvalid
	}
	normalized := Sanitize(trimmed)
	if len(normalized) > domain.MaxEmailLength {
		return "", MsgEmailTooLong
	}
	return normalized, ""
}

// IsEmail checa só a gramática, sem normalizar.
func IsEmail(s string) bool {
	if strings.HasPrefix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	return emailRe.MatchString(s)
}

// Sanitize normaliza o e-mail antes de encaminhar ou devolver ao cliente.
func Sanitize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain devolve o domínio do e-mail ou "unknown".
func EmailDomain(email string) string {
	_, d, ok := strings.Cut(email, "@")
	if !ok || d == "" {
		return "unknown"
	}
	return d
}
