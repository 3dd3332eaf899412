package toast

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

var kindMarks = map[Kind]string{
	KindSuccess: "[ok]",
	KindError:   "[erro]",
	KindWarning: "[aviso]",
	KindInfo:    "[info]",
}

// Render escreve um toast por linha: marca, título e mensagem.
func Render(w io.Writer, items []Notification) error {
	for _, n := range items {
		var b strings.Builder
		mark, ok := kindMarks[n.Kind]
		if !ok {
			mark = "[" + string(n.Kind) + "]"
		}
		b.WriteString(mark)
		b.WriteString(" ")
		b.WriteString(n.Title)
		if n.Message != "" {
			b.WriteString(": ")
			b.WriteString(n.Message)
		}
		if n.Action != nil && n.Action.Label != "" {
			fmt.Fprintf(&b, " (%s)", n.Action.Label)
		}
		b.WriteString("\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// Printer devolve um callback para List.OnChange que imprime só os toasts
// ainda não vistos.
func Printer(w io.Writer) func([]Notification) {
	var mu sync.Mutex
	seen := make(map[string]struct{})
	return func(items []Notification) {
		mu.Lock()
		defer mu.Unlock()
		fresh := make([]Notification, 0, 1)
		for _, n := range items {
			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			fresh = append(fresh, n)
		}
		_ = Render(w, fresh)
	}
}
