package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// SetHeaders escreve X-RateLimit-Limit/Remaining/Reset a partir da decisão.
// Reset vai em epoch Unix em milissegundos; omitido quando a store não sabe.
func SetHeaders(w http.ResponseWriter, dec domain.Decision) {
	h := w.Header()
	h.Set(HeaderLimit, strconv.Itoa(dec.Limit))
	h.Set(HeaderRemaining, strconv.Itoa(dec.Remaining))
	if !dec.ResetAt.IsZero() {
		h.Set(HeaderReset, strconv.FormatInt(dec.ResetAt.UnixMilli(), 10))
	}
}

// SetRetryAfter escreve Retry-After em segundos inteiros (arredondando para cima).
func SetRetryAfter(w http.ResponseWriter, dec domain.Decision) {
	secs := int64(dec.RetryAfter / time.Second)
	if dec.RetryAfter%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	w.Header().Set(HeaderRetryAfter, strconv.FormatInt(secs, 10))
}
