package analytics

import (
	"sort"

	"waitlist-gateway/waitlist/validation"

	"github.com/rs/zerolog"
)

const (
	EventSignupStarted   = "waitlist_signup_started"
	EventSignupCompleted = "waitlist_signup_completed"
	EventSignupError     = "waitlist_signup_error"
	EventPageView        = "page_view"
)

type Tracker interface {
	Track(name string, params map[string]any)
}

// Gated só repassa eventos quando o consentimento foi aceito.
type Gated struct {
	Consent ConsentStore
	Next    Tracker
}

func (g Gated) Track(name string, params map[string]any) {
	if g.Next == nil || g.Consent == nil || g.Consent.Get() != ConsentAccepted {
		return
	}
	g.Next.Track(name, params)
}

// LogTracker emite cada evento como uma linha de log.
type LogTracker struct {
	Log zerolog.Logger
}

func (t LogTracker) Track(name string, params map[string]any) {
	ev := t.Log.Info().Str("event", name)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Interface(k, params[k])
	}
	ev.Msg("analytics event")
}

// Events são os eventos pré-definidos do formulário. Nunca carregam o e-mail
// inteiro, só o domínio.
type Events struct {
	T Tracker
}

func (e Events) track(name string, params map[string]any) {
	if e.T != nil {
		e.T.Track(name, params)
	}
}

func (e Events) SignupStarted() { e.track(EventSignupStarted, nil) }

func (e Events) SignupCompleted(email string) {
	e.track(EventSignupCompleted, map[string]any{"email_domain": validation.EmailDomain(validation.Sanitize(email))})
}

func (e Events) SignupError(kind string) {
	e.track(EventSignupError, map[string]any{"error_type": kind})
}

func (e Events) PageView(name string) {
	e.track(EventPageView, map[string]any{"page_name": name})
}
