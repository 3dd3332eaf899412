package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"waitlist-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// ForwardedKeyFunc identifica o cliente só pelos headers do proxy:
// primeiro IP do X-Forwarded-For, senão X-Real-IP, senão "unknown".
//
// Sem nenhum dos headers todos os clientes caem no mesmo bucket "unknown".
// Isso é aceitável para uma waitlist de pouco tráfego atrás de um proxy.
func ForwardedKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if ip := firstForwardedIP(r); ip != "" {
			return ip
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		return string(domain.Unknown)
	}
}

// DefaultKeyFunc é a chave do guarda global: header configurado, depois
// X-Forwarded-For/X-Real-IP (só se confiáveis), depois o host de RemoteAddr.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			if ip := firstForwardedIP(r); ip != "" {
				return ip
			}
			if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
				return ip
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return string(domain.Unknown)
	}
}

// pega o primeiro IP do X-Forwarded-For (cliente original)
func firstForwardedIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
