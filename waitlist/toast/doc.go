// Package toast mantém as notificações transitórias do formulário.
package toast
