package domain

import "errors"

// Erros de domínio (sem dependências externas).
var (
	ErrNotFound       = errors.New("recurso não encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrConflict       = errors.New("conflito com o estado atual")
	ErrInvalidState   = errors.New("operação inválida para o estado atual do documento")
	ErrUnknownOutcome = errors.New("desfecho desconhecido: confirmar via consulta de situação")
)
