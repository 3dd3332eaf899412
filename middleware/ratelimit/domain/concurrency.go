package domain

import (
	"context"
	"errors"
)

// ErrNoSlot indica que a vaga não saiu dentro do prazo de espera.
var ErrNoSlot = errors.New("no slot available")

// SlotPool limita quantas requisições ficam em voo ao mesmo tempo.
//
// Acquire espera até haver vaga ou ctx terminar. release pode ser chamado
// mais de uma vez; só a primeira chamada devolve a vaga.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), err error)
	InUse() int
	Cap() int
}
