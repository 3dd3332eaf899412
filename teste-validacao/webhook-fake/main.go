package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"waitlist-gateway/waitlist/domain"

	"github.com/rs/zerolog"
)

// Webhook de automação falso para validar a waitlist à mão:
// 200 {success:true} na primeira vez de cada e-mail, 409 nas seguintes.
// SLOW=5s atrasa cada resposta; FAIL=1 devolve {success:false}.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	secret := os.Getenv("WEBHOOK_SECRET")
	slow, _ := time.ParseDuration(os.Getenv("SLOW"))

	srv := &http.Server{
		Addr:              addr,
		Handler:           newFake(secret, slow, os.Getenv("FAIL") == "1", log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", addr).Dur("slow", slow).Msg("webhook fake listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("webhook fake stopped")
	}
}

type fake struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	secret string
	slow   time.Duration
	fail   bool
	log    zerolog.Logger
}

func newFake(secret string, slow time.Duration, fail bool, log zerolog.Logger) *fake {
	return &fake{seen: make(map[string]struct{}), secret: secret, slow: slow, fail: fail, log: log}
}

func (f *fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		reply(w, http.StatusMethodNotAllowed, domain.WebhookReply{Message: "method not allowed"})
		return
	}
	if f.secret != "" && r.Header.Get("X-Webhook-Secret") != f.secret {
		reply(w, http.StatusUnauthorized, domain.WebhookReply{Message: "invalid secret"})
		return
	}

	var p domain.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || strings.TrimSpace(p.Email) == "" {
		reply(w, http.StatusBadRequest, domain.WebhookReply{Message: "invalid payload"})
		return
	}

	if f.slow > 0 {
		select {
		case <-time.After(f.slow):
		case <-r.Context().Done():
			return
		}
	}

	f.log.Info().Str("email", p.Email).Str("product", p.Product).Bool("consent", p.IsAgreedToReceiveMails).Msg("signup received")

	if f.fail {
		reply(w, http.StatusOK, domain.WebhookReply{Success: false, Message: "automation disabled"})
		return
	}

	f.mu.Lock()
	_, dup := f.seen[p.Email]
	f.seen[p.Email] = struct{}{}
	f.mu.Unlock()

	if dup {
		reply(w, http.StatusConflict, domain.WebhookReply{Message: "email already registered"})
		return
	}
	reply(w, http.StatusOK, domain.WebhookReply{Success: true, Message: "Welcome to the waitlist!"})
}

func reply(w http.ResponseWriter, status int, body domain.WebhookReply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
