package repository

import (
	"context"

	"github.com/emitefacil/emissor-api/internal/domain/entity"
)

// DocumentRepository é a porta de persistência do documento fiscal.
type DocumentRepository interface {
	// Create persiste o rascunho (cabeçalho + itens) em uma transação.
	Create(ctx context.Context, doc *entity.FiscalDocument, itens []*entity.DocumentItem) error
	GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error)
	GetItens(ctx context.Context, documentID string) ([]*entity.DocumentItem, error)
	// UpdateLifecycle persiste status, protocolos, recibo, artefatos e
	// justificativa. A implementação só grava se a transição for para frente
	// (verificação otimista contra dupla submissão); devolve
	// domain.ErrConflict quando outra invocação já avançou o documento.
	UpdateLifecycle(ctx context.Context, doc *entity.FiscalDocument) error
	// UpdateArtefatoAssinado grava apenas o XML assinado e a chave, sem mexer
	// no status: falha posterior de rede não pode descartar a assinatura.
	UpdateArtefatoAssinado(ctx context.Context, doc *entity.FiscalDocument) error
	// UpdateJustificativa grava a justificativa de cancelamento sem mexer no
	// status: ela persiste mesmo quando a SEFAZ recusa o evento.
	UpdateJustificativa(ctx context.Context, id, justificativa string) error
	// GetStatus devolve a projeção leve (status, protocolos, chave) para polling.
	GetStatus(ctx context.Context, id string) (*entity.FiscalDocument, error)
}
