package form

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"waitlist-gateway/waitlist/analytics"
	"waitlist-gateway/waitlist/domain"
	"waitlist-gateway/waitlist/toast"
	"waitlist-gateway/waitlist/validation"

	"github.com/rs/zerolog"
)

// Textos dos toasts do formulário.
const (
	TitleValidation      = "Validation Error"
	TitleConnection      = "Connection Error"
	TitleAlreadyExists   = "Already Registered"
	TitleRateLimited     = "Rate Limit Exceeded"
	TitleTimeout         = "Connection Timeout"
	TitleInvalidEmail    = "Invalid Email"
	TitleSignupFailed    = "Signup Failed"
	TitleCheckEmail      = "Check your email!"
	MsgNetwork           = "Network error. Please check your connection and try again."
	MsgAlreadyRegistered = "You're already on our waitlist! Check your email for confirmation."
	MsgRateLimited       = "Too many attempts. Please wait a few minutes before trying again."
	MsgTimeout           = "Request timed out. Please check your connection and try again."
	MsgInvalidEmail      = "Please check your email address and try again."
	MsgSignupFailed      = "Failed to join waitlist"
	MsgConfirmation      = "We've sent you a confirmation email. Please click the link to join our waitlist."

	ErrorToastDuration   = 8 * time.Second
	SuccessToastDuration = 10 * time.Second
	SubmittedWindow      = 30 * time.Second
)

type Outcome int

const (
	OutcomeBusy Outcome = iota
	OutcomeInvalid
	OutcomeNetworkError
	OutcomeRejected
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBusy:
		return "busy"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeRejected:
		return "rejected"
	case OutcomeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Controller é o formulário de inscrição do lado do cliente. Permite uma
// submissão por vez; as demais voltam OutcomeBusy sem efeito.
type Controller struct {
	api      API
	toasts   *toast.List
	events   analytics.Events
	log      zerolog.Logger
	onReset  func()
	window   time.Duration
	inFlight atomic.Bool

	mu        sync.Mutex
	lastErr   string
	submitted bool
	timer     *time.Timer
	gen       uint64
}

type Option func(*Controller)

func WithToasts(l *toast.List) Option {
	return func(c *Controller) { c.toasts = l }
}

func WithEvents(e analytics.Events) Option {
	return func(c *Controller) { c.events = e }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithResetFunc é chamado após uma inscrição bem-sucedida (limpar campos).
func WithResetFunc(fn func()) Option {
	return func(c *Controller) { c.onReset = fn }
}

// WithSubmittedWindow troca os 30s do estado "inscrito" (testes).
func WithSubmittedWindow(d time.Duration) Option {
	return func(c *Controller) { c.window = d }
}

func NewController(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		log:    zerolog.Nop(),
		window: SubmittedWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.toasts == nil {
		c.toasts = toast.NewList()
	}
	return c
}

func (c *Controller) Toasts() *toast.List { return c.toasts }

// Submitting informa se há uma submissão em andamento.
func (c *Controller) Submitting() bool { return c.inFlight.Load() }

// Submitted fica true por 30s depois de uma inscrição aceita.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// LastError é a mensagem exibida junto ao formulário; vazia quando não há erro.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) Submit(ctx context.Context, email string, agree bool) Outcome {
	if !c.inFlight.CompareAndSwap(false, true) {
		return OutcomeBusy
	}
	defer c.inFlight.Store(false)

	c.setError("")

	if _, errs := validation.ValidateForm(email, agree); len(errs) > 0 {
		c.toasts.Add(toast.Error(TitleValidation, errs.First()))
		return OutcomeInvalid
	}

	c.events.SignupStarted()

	res, err := c.api.Submit(ctx, email, agree)
	if err != nil {
		c.log.Warn().Err(err).Msg("signup request failed")
		c.setError(MsgNetwork)
		c.toasts.Add(toast.Error(TitleConnection, MsgNetwork))
		c.events.SignupError("network_error")
		return OutcomeNetworkError
	}

	if !res.OK() {
		title, msg := failureCopy(res.Body)
		c.setError(msg)
		c.toasts.Add(toast.Error(title, msg, toast.WithDuration(ErrorToastDuration)))
		kind := string(res.Body.Code)
		if kind == "" {
			kind = "unknown_error"
		}
		c.events.SignupError(kind)
		return OutcomeRejected
	}

	c.events.SignupCompleted(email)
	msg := res.Body.Message
	if msg == "" {
		msg = MsgConfirmation
	}
	c.toasts.Add(toast.Success(TitleCheckEmail, msg, toast.WithDuration(SuccessToastDuration)))
	c.markSubmitted()
	if c.onReset != nil {
		c.onReset()
	}
	return OutcomeSuccess
}

// failureCopy escolhe título e mensagem do toast pelo código da API; nunca
// mostra o código cru.
func failureCopy(body domain.APIResponse) (string, string) {
	switch body.Code {
	case domain.CodeAlreadyExists:
		return TitleAlreadyExists, MsgAlreadyRegistered
	case domain.CodeRateLimited:
		return TitleRateLimited, MsgRateLimited
	case domain.CodeTimeout:
		return TitleTimeout, MsgTimeout
	case domain.CodeValidation:
		return TitleInvalidEmail, MsgInvalidEmail
	}
	if body.Error != "" {
		return TitleSignupFailed, body.Error
	}
	return TitleSignupFailed, MsgSignupFailed
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

func (c *Controller) markSubmitted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = true
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.window, func() {
		c.mu.Lock()
		if c.gen == gen {
			c.submitted = false
		}
		c.mu.Unlock()
	})
}
