// Package domain guarda o modelo de dados da waitlist, compartilhado entre o
// handler do servidor e o controlador do formulário: inscrição, erros por
// campo, taxonomia de códigos de erro e os formatos da API e do webhook.
package domain
