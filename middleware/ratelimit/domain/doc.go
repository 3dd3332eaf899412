// Package domain define contratos e tipos de domínio para rate limit e concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas, então a
// store em memória pode ser trocada por uma compartilhada sem mexer nos chamadores.
package domain
