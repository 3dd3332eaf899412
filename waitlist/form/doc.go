// Package form é o lado cliente da inscrição: valida localmente, chama a API
// e traduz o resultado em toasts.
package form
