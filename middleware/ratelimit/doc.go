// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela fixa, token bucket, Redis, semáforo)
//   - ratelimit (este pacote): middlewares HTTP, extração de chave e headers X-RateLimit-*
//
// Dois usos no serviço da waitlist:
//
//  1. Guarda global: Middleware com BucketStore na frente de todas as rotas.
//  2. Limite de inscrição: o handler da waitlist chama application.Service
//     direto, depois da validação, com WindowStore (5 por 15 min por IP) e
//     devolve os headers com SetHeaders.
package ratelimit
