package webhook

import (
	"errors"
	"fmt"

	"waitlist-gateway/waitlist/domain"
)

// Error é uma falha já classificada na borda do cliente HTTP.
//
// Message é seguro para log; a causa original (erro de transporte, de
// decodificação) fica só em Unwrap e nunca vai para a resposta da API.
type Error struct {
	Code    domain.ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// ClientError informa se o status é 4xx (não deve ser repetido).
func (e *Error) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// AsError extrai o *Error da cadeia de erros.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
