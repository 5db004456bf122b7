package fiscal

import (
	"context"
	"fmt"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
)

// DANFEGenerator gera a representação gráfica (DANFE) de um documento.
type DANFEGenerator interface {
	GerarDANFE(ctx context.Context, doc *entity.FiscalDocument, emp *entity.Company, itens []*entity.DocumentItem) ([]byte, error)
}

// DANFE monta o PDF do DANFE do documento. Só documentos autorizados ou
// cancelados têm DANFE: antes disso não existe protocolo para estampar.
func (s *Service) DANFE(ctx context.Context, documentID string) ([]byte, error) {
	if s.danfe == nil {
		return nil, fmt.Errorf("gerador de DANFE não configurado")
	}
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.StatusAuthorized && doc.Status != entity.StatusCanceled {
		return nil, fmt.Errorf("%w: DANFE exige documento autorizado, status atual %s", domain.ErrInvalidState, doc.Status)
	}
	emp, err := s.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	itens, err := s.docs.GetItens(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.danfe.GerarDANFE(ctx, doc, emp, itens)
}
