// Package infra contém implementações concretas para os contratos do pacote domain.
//
// Exemplos:
//   - WindowStore: janela fixa em memória (limite da waitlist)
//   - RedisWindowStore: mesma janela fixa, compartilhada via script Lua no Redis
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - MemoryStatsStore / RedisStatsStore: contadores de decisões
//   - Slots: semáforo para limite de concorrência
package infra
