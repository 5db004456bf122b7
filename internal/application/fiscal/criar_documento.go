package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emitefacil/emissor-api/internal/application/dto"
	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	domfiscal "github.com/emitefacil/emissor-api/internal/domain/fiscal"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// CriarDocumento monta e persiste o rascunho (DRAFT). Nada sai pela rede
// aqui: destinatário vira snapshot, totais são derivados dos itens e o
// documento só avança quando Transmitir for chamado.
func (s *Service) CriarDocumento(ctx context.Context, req *dto.CreateDocumentRequest) (*entity.FiscalDocument, []*entity.DocumentItem, error) {
	if req == nil || req.CompanyID == "" {
		return nil, nil, fmt.Errorf("company_id obrigatório: %w", domain.ErrInvalidInput)
	}

	company, err := s.companies.GetByID(ctx, req.CompanyID)
	if err != nil {
		return nil, nil, err
	}

	natureza := strings.TrimSpace(req.Natureza)
	if natureza == "" {
		natureza = "VENDA"
	}

	now := time.Now()
	doc := &entity.FiscalDocument{
		CompanyID: company.ID,
		Numero:    req.Numero,
		Serie:     req.Serie,
		Modelo:    nfe.ModeloNFe,
		Ambiente:  company.Ambiente,
		Emissao:   now,
		Natureza:  natureza,
		Destinatario: entity.Destinatario{
			Nome:            strings.TrimSpace(req.Destinatario.Nome),
			CPFCNPJ:         nfe.OnlyDigits(req.Destinatario.CPFCNPJ),
			IE:              req.Destinatario.IE,
			Logradouro:      req.Destinatario.Logradouro,
			NumeroEndereco:  req.Destinatario.Numero,
			Bairro:          req.Destinatario.Bairro,
			Municipio:       req.Destinatario.Municipio,
			CodigoMunicipio: req.Destinatario.CodigoMunicipio,
			UF:              req.Destinatario.UF,
			CEP:             req.Destinatario.CEP,
		},
		Status:    entity.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	itens := make([]*entity.DocumentItem, 0, len(req.Itens))
	for i, it := range req.Itens {
		unidade := it.Unidade
		if unidade == "" {
			unidade = "UN"
		}
		cfop := it.CFOP
		if cfop == "" && !it.Servico {
			cfop = "5102" // venda de mercadoria adquirida de terceiros
		}
		itens = append(itens, &entity.DocumentItem{
			NumeroItem:    i + 1,
			Descricao:     strings.TrimSpace(it.Descricao),
			Codigo:        it.Codigo,
			NCM:           it.NCM,
			CFOP:          cfop,
			Unidade:       unidade,
			Servico:       it.Servico,
			Quantidade:    it.Quantidade,
			ValorUnitario: it.ValorUnitario,
			ValorTotal:    it.Quantidade.Mul(it.ValorUnitario).Round(2),
			CST:           it.CST,
			BaseCalculo:   it.BaseCalculo,
			Aliquota:      it.Aliquota,
			ValorImposto:  it.ValorImposto,
		})
	}
	doc.RecalcularTotais(itens)

	if err := domfiscal.ValidateDocumento(doc, itens, company); err != nil {
		return nil, nil, err
	}

	if err := s.docs.Create(ctx, doc, itens); err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("company_id", doc.CompanyID).
		Int64("numero", doc.Numero).
		Str("ambiente", doc.Ambiente).
		Msg("documento fiscal criado em DRAFT")

	return doc, itens, nil
}
