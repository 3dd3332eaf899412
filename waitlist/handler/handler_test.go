package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waitlist-gateway/middleware/ratelimit"
	"waitlist-gateway/middleware/ratelimit/infra"
	"waitlist-gateway/waitlist/domain"
	"waitlist-gateway/waitlist/validation"
	"waitlist-gateway/waitlist/webhook"
)

// fakePoster grava as chamadas e devolve reply/err configurados.
type fakePoster struct {
	mu    sync.Mutex
	calls []fakeCall
	reply domain.WebhookReply
	err   error
	panic bool
}

type fakeCall struct {
	url     string
	payload domain.WebhookPayload
	opts    webhook.Options
}

func (f *fakePoster) PostJSON(_ context.Context, url string, body, out any, opts webhook.Options) error {
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{url: url, payload: body.(domain.WebhookPayload), opts: opts})
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	*out.(*domain.WebhookReply) = f.reply
	return nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, p *fakePoster, opts ...Option) http.Handler {
	t.Helper()
	cfg := Config{WebhookURL: "https://hooks.example/signup", WebhookSecret: "s3cret", Product: "launchpad"}
	base := []Option{
		WithPoster(p),
		WithClock(func() time.Time { return fixedNow }),
		WithLimiterStore(infra.NewWindowStore(5, 15*time.Minute, infra.WithClock(func() time.Time { return fixedNow }))),
	}
	return NewRouter(New(cfg, append(base, opts...)...), RouterOptions{})
}

func post(t *testing.T, h http.Handler, body string, ip string) (*httptest.ResponseRecorder, domain.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp domain.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

const validBody = `{"email":"person@example.com","agreeToEmails":true}`

func TestSignup_Success(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := newTestHandler(t, p)

	rec, resp := post(t, h, validBody, "203.0.113.7")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, MsgJoined, resp.Message)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "person@example.com", resp.Data.Email)
	assert.Equal(t, "2026-03-01T10:00:00.000Z", resp.Data.Timestamp)

	assert.Equal(t, "5", rec.Header().Get(ratelimit.HeaderLimit))
	assert.Equal(t, "4", rec.Header().Get(ratelimit.HeaderRemaining))
	assert.Equal(t, strconv.FormatInt(fixedNow.Add(15*time.Minute).UnixMilli(), 10), rec.Header().Get(ratelimit.HeaderReset))

	require.Equal(t, 1, p.count())
	call := p.calls[0]
	assert.Equal(t, "https://hooks.example/signup", call.url)
	assert.Equal(t, domain.WebhookPayload{Email: "person@example.com", Product: "launchpad", IsAgreedToReceiveMails: true}, call.payload)
	assert.Equal(t, UserAgent, call.opts.Headers["User-Agent"])
	assert.Equal(t, "s3cret", call.opts.Headers["X-Webhook-Secret"])
	assert.Equal(t, 2, call.opts.MaxRetries)
	assert.Equal(t, 30*time.Second, call.opts.Timeout)
}

func TestSignup_UpstreamMessagePassesThroughOnSuccess(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true, Message: "See you soon"}}
	_, resp := post(t, newTestHandler(t, p), validBody, "203.0.113.7")
	assert.Equal(t, "See you soon", resp.Message)
}

func TestSignup_SanitizesBeforeForwardingAndEcho(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	rec, resp := post(t, newTestHandler(t, p), `{"email":"A@Example.com ","agreeToEmails":true}`, "203.0.113.7")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@example.com", resp.Data.Email)
	require.Equal(t, 1, p.count())
	assert.Equal(t, "a@example.com", p.calls[0].payload.Email)
}

func TestSignup_NoSecretHeaderWhenUnset(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := NewRouter(New(Config{WebhookURL: "https://hooks.example/signup"}, WithPoster(p)), RouterOptions{})

	rec, _ := post(t, h, validBody, "203.0.113.7")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := p.calls[0].opts.Headers["X-Webhook-Secret"]
	assert.False(t, ok)
	assert.Equal(t, DefaultProduct, p.calls[0].payload.Product)
}

func TestSignup_InvalidJSON(t *testing.T) {
	p := &fakePoster{}
	for _, body := range []string{"", "{", "not json", `{"email":"a@b.co"} trailing`} {
		rec, resp := post(t, newTestHandler(t, p), body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, domain.CodeValidation, resp.Code, body)
		assert.Equal(t, MsgInvalidJSON, resp.Error, body)
	}
	assert.Zero(t, p.count())
}

func TestSignup_BodyTooLarge(t *testing.T) {
	p := &fakePoster{}
	big := `{"email":"` + strings.Repeat("a", maxRequestBytes) + `@example.com","agreeToEmails":true}`
	rec, resp := post(t, newTestHandler(t, p), big, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidJSON, resp.Error)
	assert.Zero(t, p.count())
}

func TestSignup_ValidationFailureHasDetails(t *testing.T) {
	p := &fakePoster{}
	cases := []struct {
		name   string
		body   string
		fields []string
	}{
		{"bad email", `{"email":"nope","agreeToEmails":true}`, []string{domain.FieldEmail}},
		{"missing email", `{"agreeToEmails":true}`, []string{domain.FieldEmail}},
		{"email not string", `{"email":42,"agreeToEmails":true}`, []string{domain.FieldEmail}},
		{"consent missing", `{"email":"a@example.com"}`, []string{domain.FieldAgreeToEmails}},
		{"consent string", `{"email":"a@example.com","agreeToEmails":"true"}`, []string{domain.FieldAgreeToEmails}},
		{"both", `{"email":"x","agreeToEmails":false}`, []string{domain.FieldEmail, domain.FieldAgreeToEmails}},
		{"array", `[1,2]`, []string{""}},
		{"null", `null`, []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := post(t, newTestHandler(t, p), tc.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, domain.CodeValidation, resp.Code)
			assert.Equal(t, MsgValidationFailed, resp.Error)
			assert.ElementsMatch(t, tc.fields, resp.Details.Fields())
		})
	}
	assert.Zero(t, p.count())
}

func TestSignup_ConsentExplicitlyDeclined(t *testing.T) {
	p := &fakePoster{}
	rec, resp := post(t, newTestHandler(t, p), `{"email":"a@example.com","agreeToEmails":false}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.CodeValidation, resp.Code)
	assert.Equal(t, MsgConsentRequired, resp.Error)
	assert.Empty(t, resp.Details)
	assert.Zero(t, p.count())
}

func TestSignup_RateLimitSixthRequest(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := newTestHandler(t, p)

	for i := 1; i <= 5; i++ {
		rec, _ := post(t, h, validBody, "198.51.100.1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, strconv.Itoa(5-i), rec.Header().Get(ratelimit.HeaderRemaining))
	}

	rec, resp := post(t, h, validBody, "198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, domain.CodeRateLimited, resp.Code)
	assert.Equal(t, MsgTooManyRequests, resp.Error)
	assert.Equal(t, "5", rec.Header().Get(ratelimit.HeaderLimit))
	assert.Equal(t, "0", rec.Header().Get(ratelimit.HeaderRemaining))
	assert.NotEmpty(t, rec.Header().Get(ratelimit.HeaderReset))
	assert.Equal(t, "900", rec.Header().Get(ratelimit.HeaderRetryAfter))
	assert.Equal(t, 5, p.count())

	// outro IP tem cota própria
	rec, _ = post(t, h, validBody, "198.51.100.2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignup_RateLimitWindowResets(t *testing.T) {
	now := fixedNow
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := NewRouter(New(Config{WebhookURL: "https://hooks.example/signup"},
		WithPoster(p),
		WithClock(clock),
		WithLimiterStore(infra.NewWindowStore(5, 15*time.Minute, infra.WithClock(clock))),
	), RouterOptions{})

	for i := 0; i < 6; i++ {
		post(t, h, validBody, "198.51.100.9")
	}

	mu.Lock()
	now = now.Add(15*time.Minute + time.Millisecond)
	mu.Unlock()

	rec, _ := post(t, h, validBody, "198.51.100.9")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get(ratelimit.HeaderRemaining))
}

func TestSignup_ValidationDoesNotConsumeQuota(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := newTestHandler(t, p)

	for i := 0; i < 10; i++ {
		post(t, h, `{"email":"bad","agreeToEmails":true}`, "198.51.100.3")
	}
	rec, _ := post(t, h, validBody, "198.51.100.3")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get(ratelimit.HeaderRemaining))
}

func TestSignup_IdenticalInputTwiceIsNotDeduped(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := newTestHandler(t, p)

	r1, _ := post(t, h, validBody, "198.51.100.4")
	r2, _ := post(t, h, validBody, "198.51.100.4")
	assert.Equal(t, http.StatusOK, r1.Code)
	assert.Equal(t, http.StatusOK, r2.Code)
	assert.Equal(t, 2, p.count())
}

func TestSignup_MissingWebhookURL(t *testing.T) {
	p := &fakePoster{}
	h := NewRouter(New(Config{}, WithPoster(p)), RouterOptions{})

	rec, resp := post(t, h, validBody, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.CodeServer, resp.Code)
	assert.Equal(t, MsgUnavailable, resp.Error)
	assert.NotContains(t, rec.Body.String(), "URL")
	assert.Zero(t, p.count())
}

func TestSignup_UpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   domain.ErrorCode
		msg    string
	}{
		{"conflict", &webhook.Error{Code: domain.CodeAlreadyExists, Status: 409, Message: "dup"}, http.StatusConflict, domain.CodeAlreadyExists, MsgAlreadyExists},
		{"timeout", &webhook.Error{Code: domain.CodeTimeout, Status: 408, Message: "Request timeout"}, http.StatusRequestTimeout, domain.CodeTimeout, MsgTimeout},
		{"upstream 429", &webhook.Error{Code: domain.CodeRateLimited, Status: 429, Message: "slow down"}, http.StatusTooManyRequests, domain.CodeRateLimited, MsgUpstreamBusy},
		{"upstream 503", &webhook.Error{Code: domain.CodeServer, Status: 503, Message: "db at 10.0.0.5 down"}, http.StatusInternalServerError, domain.CodeServer, MsgUnavailable},
		{"network", &webhook.Error{Code: domain.CodeNetwork, Status: 500, Message: "Network request failed"}, http.StatusInternalServerError, domain.CodeNetwork, MsgUnavailable},
		{"upstream 400", &webhook.Error{Code: domain.CodeValidation, Status: 400, Message: "bad"}, http.StatusInternalServerError, domain.CodeValidation, MsgUnavailable},
		{"unclassified", errors.New("something odd"), http.StatusInternalServerError, domain.CodeServer, MsgUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakePoster{err: tc.err}
			rec, resp := post(t, newTestHandler(t, p), validBody, "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, resp.Code)
			assert.Equal(t, tc.msg, resp.Error)
			assert.False(t, resp.Success)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		})
	}
}

func TestSignup_WebhookReportsFailure(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: false, Message: "list is closed"}}
	rec, resp := post(t, newTestHandler(t, p), validBody, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.CodeWebhook, resp.Code)
	assert.Equal(t, "list is closed", resp.Error)

	p = &fakePoster{reply: domain.WebhookReply{Success: false}}
	_, resp = post(t, newTestHandler(t, p), validBody, "")
	assert.Equal(t, MsgWebhookFailed, resp.Error)
}

func TestSignup_PanicIsFlattened(t *testing.T) {
	p := &fakePoster{panic: true}
	rec, resp := post(t, newTestHandler(t, p), validBody, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.CodeServer, resp.Code)
	assert.Equal(t, MsgInternal, resp.Error)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestSignup_ThroughRealWebhookClient(t *testing.T) {
	var got domain.WebhookPayload
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		if got.Email == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"exists"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"message":"ok"}`)
	}))
	defer upstream.Close()

	h := NewRouter(New(Config{WebhookURL: upstream.URL},
		WithWebhookOptions(webhook.Options{Timeout: 2 * time.Second, MaxRetries: 2, RetryDelay: 5 * time.Millisecond}),
	), RouterOptions{})

	rec, resp := post(t, h, `{"email":" Taken@Example.com","agreeToEmails":true}`, "192.0.2.1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.CodeAlreadyExists, resp.Code)
	assert.Equal(t, "taken@example.com", got.Email)

	rec, resp = post(t, h, `{"email":"new@example.com","agreeToEmails":true}`, "192.0.2.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Message)
}

func TestSignup_InvalidEmailsNeverReachWebhook(t *testing.T) {
	p := &fakePoster{reply: domain.WebhookReply{Success: true}}
	h := newTestHandler(t, p)
	for _, email := range []string{"plain", "@example.com", "a@", "a@b", ".a@example.com", "a..b@example.com", "a b@example.com"} {
		require.False(t, validation.IsEmail(email), email)
		body, _ := json.Marshal(map[string]any{"email": email, "agreeToEmails": true})
		rec, resp := post(t, h, string(body), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, email)
		assert.True(t, resp.Details.Has(domain.FieldEmail), email)
	}
	assert.Zero(t, p.count())
}
