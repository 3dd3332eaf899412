package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// DefaultDuration vale quando Notification.Duration é zero e nenhuma opção o
// definiu. Duração negativa deixa o toast fixo até Remove/Clear.
const DefaultDuration = 5 * time.Second

type Action struct {
	Label   string
	OnClick func()
}

type Notification struct {
	ID       string
	Kind     Kind
	Title    string
	Message  string
	Duration time.Duration
	Action   *Action
}

// Sticky informa se o toast só sai por remoção explícita.
func (n Notification) Sticky() bool { return n.Duration <= 0 }

type Option func(*Notification)

// WithDuration define a duração; d <= 0 torna o toast fixo.
func WithDuration(d time.Duration) Option {
	return func(n *Notification) {
		if d <= 0 {
			d = -1
		}
		n.Duration = d
	}
}

func WithAction(label string, onClick func()) Option {
	return func(n *Notification) { n.Action = &Action{Label: label, OnClick: onClick} }
}

func build(kind Kind, title, message string, opts []Option) Notification {
	n := Notification{Kind: kind, Title: title, Message: message, Duration: DefaultDuration}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

func Success(title, message string, opts ...Option) Notification {
	return build(KindSuccess, title, message, opts)
}

func Error(title, message string, opts ...Option) Notification {
	return build(KindError, title, message, opts)
}

func Warning(title, message string, opts ...Option) Notification {
	return build(KindWarning, title, message, opts)
}

func Info(title, message string, opts ...Option) Notification {
	return build(KindInfo, title, message, opts)
}

// List guarda os toasts visíveis. Cada toast expira no próprio timer;
// remover um id que já saiu não faz nada.
type List struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]*time.Timer
	onChange func([]Notification)
}

func NewList() *List {
	return &List{timers: make(map[string]*time.Timer)}
}

// OnChange registra fn, chamada fora do lock com uma cópia da lista a cada
// inserção ou remoção.
func (l *List) OnChange(fn func([]Notification)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Add insere n e devolve o id gerado. Duration zero vira DefaultDuration.
func (l *List) Add(n Notification) string {
	n.ID = uuid.NewString()
	if n.Duration == 0 {
		n.Duration = DefaultDuration
	}

	l.mu.Lock()
	l.items = append(l.items, n)
	if !n.Sticky() {
		id := n.ID
		l.timers[id] = time.AfterFunc(n.Duration, func() { l.Remove(id) })
	}
	snap, fn := l.snapshotLocked()
	l.mu.Unlock()

	notify(fn, snap)
	return n.ID
}

func (l *List) Remove(id string) {
	l.mu.Lock()
	idx := -1
	for i, n := range l.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return
	}
	l.items = append(l.items[:idx], l.items[idx+1:]...)
	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
	snap, fn := l.snapshotLocked()
	l.mu.Unlock()

	notify(fn, snap)
}

func (l *List) Clear() {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		return
	}
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	l.items = nil
	snap, fn := l.snapshotLocked()
	l.mu.Unlock()

	notify(fn, snap)
}

// Items devolve uma cópia em ordem de inserção.
func (l *List) Items() []Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap, _ := l.snapshotLocked()
	return snap
}

func (l *List) snapshotLocked() ([]Notification, func([]Notification)) {
	out := make([]Notification, len(l.items))
	copy(out, l.items)
	return out, l.onChange
}

func notify(fn func([]Notification), snap []Notification) {
	if fn != nil {
		fn(snap)
	}
}
