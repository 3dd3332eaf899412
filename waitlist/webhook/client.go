package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"waitlist-gateway/waitlist/domain"
	"waitlist-gateway/waitlist/metrics"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second

	maxBodyBytes = 1 << 20
)

type Options struct {
	// Timeout é um prazo único para a série inteira de tentativas, esperas
	// incluídas; tentativas tardias ficam com menos tempo.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Headers    map[string]string
}

func DefaultOptions() Options {
	return Options{
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

func (o Options) normalized() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// Poster é o contrato que o handler usa; *Client implementa.
type Poster interface {
	PostJSON(ctx context.Context, url string, body, out any, opts Options) error
}

// Client faz POST de JSON com timeout, retentativas com backoff linear e
// classificação de erros. Não guarda estado entre chamadas.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{},
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post é o atalho tipado em cima de Poster.PostJSON.
func Post[T any](ctx context.Context, p Poster, url string, body any, opts Options) (T, error) {
	var out T
	err := p.PostJSON(ctx, url, body, &out, opts)
	return out, err
}

// PostJSON envia body como JSON para rawURL e decodifica a resposta 2xx em out.
//
// Regras:
//   - tentativa n>0 espera RetryDelay*n antes;
//   - resposta 4xx falha na hora, sem retentativa;
//   - prazo estourado falha na hora como TIMEOUT_ERROR;
//   - outras falhas são repetidas; esgotadas as tentativas o último erro volta,
//     embrulhado como NETWORK_ERROR se ainda não era classificado.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, out any, opts Options) error {
	opts = opts.normalized()

	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return &Error{Code: domain.CodeNetwork, Status: http.StatusInternalServerError, Message: "Invalid webhook URL", cause: err}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.WebhookDuration.Observe(time.Since(start).Seconds()) }()

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, opts.RetryDelay*time.Duration(attempt)); err != nil {
				return contextError(ctx, opts, attempt, lastErr)
			}
		}

		err := c.do(ctx, rawURL, payload, out, opts.Headers)
		if err == nil {
			metrics.WebhookAttempts.WithLabelValues("ok").Inc()
			return nil
		}
		lastErr = err

		if he, ok := AsError(err); ok {
			metrics.WebhookAttempts.WithLabelValues(string(he.Code)).Inc()
			if he.ClientError() {
				return he
			}
		} else {
			metrics.WebhookAttempts.WithLabelValues("transport_error").Inc()
			if ctx.Err() != nil || isTimeout(err) {
				return contextError(ctx, opts, attempt, err)
			}
		}

		c.log.Debug().Err(err).Int("attempt", attempt+1).Int("max_attempts", opts.MaxRetries+1).Msg("webhook attempt failed")
	}

	if he, ok := AsError(lastErr); ok {
		return he
	}
	return &Error{
		Code:    domain.CodeNetwork,
		Status:  http.StatusInternalServerError,
		Message: "Network request failed",
		Details: map[string]any{"attempts": opts.MaxRetries + 1},
		cause:   lastErr,
	}
}

func (c *Client) do(ctx context.Context, rawURL string, payload []byte, out any, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError lê a mensagem do corpo: campo "message" se for JSON, senão o
// texto cru, senão "HTTP <status>: <texto do status>".
func statusError(status int, raw []byte) *Error {
	var (
		msg      string
		response any
	)
	if gjson.ValidBytes(raw) {
		msg = gjson.GetBytes(raw, "message").String()
		response = gjson.ParseBytes(raw).Value()
	} else {
		msg = strings.TrimSpace(string(raw))
		response = map[string]any{"message": msg}
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	return &Error{
		Code:    domain.CodeForStatus(status),
		Status:  status,
		Message: msg,
		Details: map[string]any{"response": response},
	}
}

// contextError traduz o fim do contexto: prazo estourado vira TIMEOUT_ERROR,
// cancelamento pelo chamador vira NETWORK_ERROR. Nenhum dos dois é repetido.
func contextError(ctx context.Context, opts Options, attempt int, cause error) *Error {
	details := map[string]any{"timeout": opts.Timeout.String(), "attempt": attempt + 1}
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Code: domain.CodeNetwork, Status: http.StatusInternalServerError, Message: "Request canceled", Details: details, cause: cause}
	}
	return &Error{Code: domain.CodeTimeout, Status: http.StatusRequestTimeout, Message: "Request timeout", Details: details, cause: cause}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
