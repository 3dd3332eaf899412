package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Unknown é a chave usada quando não dá para atribuir a requisição a um cliente.
// Todos os clientes sem IP identificável dividem o mesmo bucket.
const Unknown Key = "unknown"

// LimiterStore consome uma unidade de cota para a chave e devolve a decisão.
//
// A implementação pode ser janela fixa, token bucket, etc., em memória ou
// compartilhada (Redis). Quem chama não deve consumir de novo quando a decisão
// vier bloqueada.
type LimiterStore interface {
	Take(ctx context.Context, key Key) (Decision, error)
}

type Decision struct {
	Allowed bool

	// Limit é a cota total da janela; Remaining o que sobrou depois deste consumo.
	Limit     int
	Remaining int

	// ResetAt é quando a janela atual expira. Zero quando a store não sabe dizer.
	ResetAt time.Time

	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
