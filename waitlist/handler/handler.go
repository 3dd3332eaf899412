package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"waitlist-gateway/middleware/ratelimit"
	"waitlist-gateway/middleware/ratelimit/application"
	rldomain "waitlist-gateway/middleware/ratelimit/domain"
	"waitlist-gateway/middleware/ratelimit/infra"
	"waitlist-gateway/waitlist/domain"
	"waitlist-gateway/waitlist/metrics"
	"waitlist-gateway/waitlist/validation"
	"waitlist-gateway/waitlist/webhook"

	"github.com/rs/zerolog"
)

const (
	Version        = "1.0.0"
	DefaultProduct = "aiResearcher"
	UserAgent      = "Waitlist-App/1.0"
	SignupScope    = "signup"

	maxRequestBytes = 1 << 20
)

type Config struct {
	WebhookURL    string
	WebhookSecret string
	Product       string
}

// Handler atende POST /api/waitlist e GET /api/waitlist.
//
// Não guarda estado entre requisições além da store de rate limit.
type Handler struct {
	cfg         Config
	poster      webhook.Poster
	limiter     application.Service
	keyFn       ratelimit.KeyFunc
	stats       rldomain.StatsStore
	log         zerolog.Logger
	now         func() time.Time
	webhookOpts webhook.Options
}

type Option func(*Handler)

func WithPoster(p webhook.Poster) Option {
	return func(h *Handler) { h.poster = p }
}

// WithLimiterStore troca a store da janela de inscrições (ex.: Redis).
func WithLimiterStore(s rldomain.LimiterStore) Option {
	return func(h *Handler) { h.limiter.Store = s }
}

func WithKeyFunc(fn ratelimit.KeyFunc) Option {
	return func(h *Handler) { h.keyFn = fn }
}

func WithStats(s rldomain.StatsStore) Option {
	return func(h *Handler) { h.stats = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
		h.limiter.Now = now
	}
}

func WithWebhookOptions(o webhook.Options) Option {
	return func(h *Handler) { h.webhookOpts = o }
}

func New(cfg Config, opts ...Option) *Handler {
	if strings.TrimSpace(cfg.Product) == "" {
		cfg.Product = DefaultProduct
	}
	h := &Handler{
		cfg:   cfg,
		keyFn: ratelimit.ForwardedKeyFunc(),
		log:   zerolog.Nop(),
		now:   time.Now,
		webhookOpts: webhook.Options{
			Timeout:    webhook.DefaultTimeout,
			MaxRetries: 2,
			RetryDelay: webhook.DefaultRetryDelay,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.limiter.Store == nil {
		h.limiter.Store = infra.NewWindowStore(infra.DefaultWindowLimit, infra.DefaultWindow)
	}
	if h.poster == nil {
		h.poster = webhook.NewClient(webhook.WithLogger(h.log))
	}
	return h
}

// Signup executa o pipeline: parse, validação, consentimento, rate limit,
// encaminhamento ao webhook e resposta. Cada etapa pode encerrar a requisição.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	log := h.log.With().Str("route", "signup").Logger()

	input, err := decodeBody(w, r)
	if err != nil {
		log.Debug().Err(err).Msg("invalid request body")
		h.fail(w, http.StatusBadRequest, domain.CodeValidation, MsgInvalidJSON, nil)
		return
	}

	req, errs := validation.Validate(input)
	if len(errs) > 0 {
		if validation.ConsentDeclined(input, errs) {
			h.fail(w, http.StatusBadRequest, domain.CodeValidation, MsgConsentRequired, nil)
			return
		}
		h.fail(w, http.StatusBadRequest, domain.CodeValidation, MsgValidationFailed, errs)
		return
	}

	key := rldomain.Key(h.keyFn(r))
	dec, err := h.limiter.Decide(r.Context(), key)
	if err != nil {
		log.Warn().Err(err).Msg("signup rate limit store failed, allowing request")
	}
	metrics.RateLimitDecisions.WithLabelValues(SignupScope, metrics.Result(dec.Allowed)).Inc()
	ratelimit.Record(r, h.stats, log, rldomain.StatsEvent{Key: key, Scope: SignupScope, Allowed: dec.Allowed})

	if !dec.Allowed {
		ratelimit.SetHeaders(w, dec)
		ratelimit.SetRetryAfter(w, dec)
		h.fail(w, http.StatusTooManyRequests, domain.CodeRateLimited, MsgTooManyRequests, nil)
		return
	}

	if strings.TrimSpace(h.cfg.WebhookURL) == "" {
		log.Error().Msg("webhook URL is not configured")
		h.fail(w, http.StatusInternalServerError, domain.CodeServer, MsgUnavailable, nil)
		return
	}

	reply, err := webhook.Post[domain.WebhookReply](r.Context(), h.poster, h.cfg.WebhookURL, domain.WebhookPayload{
		Email:                  req.Email,
		Product:                h.cfg.Product,
		IsAgreedToReceiveMails: req.AgreeToEmails,
	}, h.outboundOptions())
	if err != nil {
		h.upstreamFailure(w, log, err)
		return
	}
	if !reply.Success {
		log.Error().Str("message", reply.Message).Msg("webhook reported failure")
		msg := reply.Message
		if msg == "" {
			msg = MsgWebhookFailed
		}
		h.fail(w, http.StatusInternalServerError, domain.CodeWebhook, msg, nil)
		return
	}

	msg := reply.Message
	if msg == "" {
		msg = MsgJoined
	}
	if dec.Limit > 0 {
		ratelimit.SetHeaders(w, dec)
	}
	metrics.SignupsTotal.WithLabelValues("ok").Inc()
	log.Info().Str("domain", validation.EmailDomain(req.Email)).Msg("signup forwarded")
	writeJSON(w, http.StatusOK, domain.APIResponse{
		Success: true,
		Message: msg,
		Data: &domain.SignupData{
			Email:     req.Email,
			Timestamp: domain.Timestamp(h.now()),
		},
	})
}

// Health é a sonda de liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.Health{
		Status:    "healthy",
		Timestamp: domain.Timestamp(h.now()),
		Version:   Version,
	})
}

func (h *Handler) outboundOptions() webhook.Options {
	o := h.webhookOpts
	headers := map[string]string{"User-Agent": UserAgent}
	if h.cfg.WebhookSecret != "" {
		headers["X-Webhook-Secret"] = h.cfg.WebhookSecret
	}
	o.Headers = headers
	return o
}

// upstreamFailure converte o erro classificado do cliente no texto e status
// da API. O código original é mantido; a mensagem nunca vem do upstream.
func (h *Handler) upstreamFailure(w http.ResponseWriter, log zerolog.Logger, err error) {
	he, ok := webhook.AsError(err)
	if !ok {
		log.Error().Err(err).Msg("webhook call failed")
		h.fail(w, http.StatusInternalServerError, domain.CodeServer, MsgUnavailable, nil)
		return
	}
	log.Error().Err(err).Str("code", string(he.Code)).Int("upstream_status", he.Status).Msg("webhook call failed")

	switch he.Code {
	case domain.CodeAlreadyExists:
		h.fail(w, http.StatusConflict, he.Code, MsgAlreadyExists, nil)
	case domain.CodeTimeout:
		h.fail(w, http.StatusRequestTimeout, he.Code, MsgTimeout, nil)
	case domain.CodeRateLimited:
		h.fail(w, http.StatusTooManyRequests, he.Code, MsgUpstreamBusy, nil)
	default:
		h.fail(w, http.StatusInternalServerError, he.Code, MsgUnavailable, nil)
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, code domain.ErrorCode, msg string, details domain.FieldErrors) {
	metrics.SignupsTotal.WithLabelValues(string(code)).Inc()
	writeError(w, status, code, msg, details)
}

// decodeBody lê no máximo 1 MiB e decodifica qualquer valor JSON; a forma do
// objeto é problema da validação.
func decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	if r.Body == nil {
		return nil, errors.New("empty body")
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		return nil, err
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	return input, nil
}
