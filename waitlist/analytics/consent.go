package analytics

import "sync"

// Consent é a escolha do visitante sobre cookies de analytics.
type Consent string

const (
	ConsentUnset    Consent = ""
	ConsentAccepted Consent = "accepted"
	ConsentRejected Consent = "rejected"
)

type ConsentStore interface {
	Get() Consent
	Set(Consent)
}

// MemoryConsent guarda a escolha só durante a vida do processo.
type MemoryConsent struct {
	mu sync.RWMutex
	v  Consent
}

func NewMemoryConsent(initial Consent) *MemoryConsent {
	return &MemoryConsent{v: initial}
}

func (m *MemoryConsent) Get() Consent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v
}

func (m *MemoryConsent) Set(c Consent) {
	m.mu.Lock()
	m.v = c
	m.mu.Unlock()
}

// ParseConsent aceita "accepted"/"rejected"; o resto vira ConsentUnset.
func ParseConsent(s string) Consent {
	switch Consent(s) {
	case ConsentAccepted, ConsentRejected:
		return Consent(s)
	default:
		return ConsentUnset
	}
}
