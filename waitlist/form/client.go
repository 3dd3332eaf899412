package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"waitlist-gateway/waitlist/domain"
)

const (
	SignupPath = "/api/waitlist"

	// DefaultRequestTimeout limita a chamada do formulário; o visitante não
	// cancela por conta própria.
	DefaultRequestTimeout = 35 * time.Second
)

// Result é a resposta HTTP já decodificada.
type Result struct {
	Status int
	Body   domain.APIResponse
}

func (r Result) OK() bool { return r.Status >= 200 && r.Status < 300 }

// API é o que o Controller precisa do servidor. Erro significa falha
// estrutural: sem resposta ou resposta ilegível.
type API interface {
	Submit(ctx context.Context, email string, agree bool) (Result, error)
}

// APIClient fala com POST <base>/api/waitlist.
type APIClient struct {
	base string
	http *http.Client
}

func NewAPIClient(baseURL string, hc *http.Client) *APIClient {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultRequestTimeout}
	}
	return &APIClient{base: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *APIClient) Submit(ctx context.Context, email string, agree bool) (Result, error) {
	body, err := json.Marshal(map[string]any{
		domain.FieldEmail:         email,
		domain.FieldAgreeToEmails: agree,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode signup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+SignupPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post signup: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	var out domain.APIResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return Result{Status: resp.StatusCode, Body: out}, nil
}
