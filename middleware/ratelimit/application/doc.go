// Package application contém os casos de uso para rate limit e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(ctx, key) consome cota e retorna uma Decision
// (allow/deny, limite, restante, reset e retry-after).
package application
