package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/emitefacil/emissor-api/internal/application/dto"
	"github.com/emitefacil/emissor-api/internal/application/fiscal"
	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	domfiscal "github.com/emitefacil/emissor-api/internal/domain/fiscal"
)

// FiscalHandler maneja as requisições HTTP do ciclo de emissão da NF-e.
type FiscalHandler struct {
	svc *fiscal.Service
}

// NewFiscalHandler constrói o handler.
func NewFiscalHandler(svc *fiscal.Service) *FiscalHandler {
	return &FiscalHandler{svc: svc}
}

// Create monta o rascunho do documento fiscal.
// POST /api/documents
func (h *FiscalHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	doc, itens, err := h.svc.CriarDocumento(c.Context(), &in)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toDocumentResponse(doc, itens))
}

// Transmit assina (se necessário) e transmite o documento à SEFAZ.
// POST /api/documents/:id/transmitir
func (h *FiscalHandler) Transmit(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	out, err := h.svc.Transmitir(c.Context(), id)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// Cancel registra o evento de cancelamento de um documento autorizado.
// POST /api/documents/:id/cancelar
func (h *FiscalHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	var in dto.CancelDocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "corpo inválido"})
	}
	out, err := h.svc.Cancelar(c.Context(), id, in.Justificativa)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// Query consulta a situação do documento na SEFAZ e reconcilia o status.
// POST /api/documents/:id/consultar
func (h *FiscalHandler) Query(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	out, err := h.svc.Consultar(c.Context(), id)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(out)
}

// GetByID devolve o documento completo com itens.
// GET /api/documents/:id
func (h *FiscalHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	doc, itens, err := h.svc.Obter(c.Context(), id)
	if err != nil {
		return fiscalError(c, err)
	}
	return c.JSON(toDocumentResponse(doc, itens))
}

// Status devolve a projeção leve do ciclo de vida.
// GET /api/documents/:id/status
func (h *FiscalHandler) Status(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	doc, err := h.svc.Status(c.Context(), id)
	if err != nil {
		return fiscalError(c, err)
	}
	out := dto.DocumentStatusDTO{
		ID:                    doc.ID,
		Status:                string(doc.Status),
		Chave:                 doc.Chave,
		Protocolo:             doc.Protocolo,
		ProtocoloCancelamento: doc.ProtocoloCancelamento,
		Recibo:                doc.Recibo,
	}
	if doc.AutorizadoEm != nil {
		out.AutorizadoEm = doc.AutorizadoEm.Format("2006-01-02T15:04:05Z07:00")
	}
	return c.JSON(out)
}

// XML serve o artefato XML do documento: o nfeProc autorizado quando existe,
// senão o XML assinado.
// GET /api/documents/:id/xml
func (h *FiscalHandler) XML(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	doc, _, err := h.svc.Obter(c.Context(), id)
	if err != nil {
		return fiscalError(c, err)
	}
	payload := doc.XMLAutorizado
	if payload == "" {
		payload = doc.XMLAssinado
	}
	if payload == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento ainda não possui XML assinado"})
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.SendString(payload)
}

// DANFE serve a representação gráfica em PDF.
// GET /api/documents/:id/danfe
func (h *FiscalHandler) DANFE(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	pdf, err := h.svc.DANFE(c.Context(), id)
	if err != nil {
		return fiscalError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(pdf)
}

// fiscalError traduz erros de domínio em respostas HTTP.
func fiscalError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domfiscal.ErrJustificativaInvalida),
		errors.Is(err, domfiscal.ErrDocumentoInvalido),
		errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento ou empresa não encontrados"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "documento já existe para esta série e número"})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, domain.ErrUnknownOutcome):
		// A transmissão chegou até a rede mas o desfecho é incerto: o
		// chamador deve usar /consultar antes de reemitir.
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "UNKNOWN_OUTCOME", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// toDocumentResponse converte entidade + itens em DTO de resposta.
func toDocumentResponse(doc *entity.FiscalDocument, itens []*entity.DocumentItem) dto.DocumentResponse {
	out := dto.DocumentResponse{
		ID:        doc.ID,
		CompanyID: doc.CompanyID,
		Numero:    doc.Numero,
		Serie:     doc.Serie,
		Modelo:    doc.Modelo,
		Chave:     doc.Chave,
		Ambiente:  doc.Ambiente,
		Emissao:   doc.Emissao.Format("2006-01-02T15:04:05Z07:00"),
		Natureza:  doc.Natureza,
		Status:    string(doc.Status),
		Destinatario: dto.DestinatarioRequest{
			Nome:            doc.Destinatario.Nome,
			CPFCNPJ:         doc.Destinatario.CPFCNPJ,
			IE:              doc.Destinatario.IE,
			Logradouro:      doc.Destinatario.Logradouro,
			Numero:          doc.Destinatario.NumeroEndereco,
			Bairro:          doc.Destinatario.Bairro,
			Municipio:       doc.Destinatario.Municipio,
			CodigoMunicipio: doc.Destinatario.CodigoMunicipio,
			UF:              doc.Destinatario.UF,
			CEP:             doc.Destinatario.CEP,
		},
		VProdutos:             doc.VProdutos,
		VServicos:             doc.VServicos,
		VTotal:                doc.VTotal,
		Protocolo:             doc.Protocolo,
		ProtocoloCancelamento: doc.ProtocoloCancelamento,
		Recibo:                doc.Recibo,
		Justificativa:         doc.Justificativa,
	}
	if doc.AutorizadoEm != nil {
		out.AutorizadoEm = doc.AutorizadoEm.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, it := range itens {
		out.Itens = append(out.Itens, dto.DocumentItemResponse{
			NumeroItem:    it.NumeroItem,
			Descricao:     it.Descricao,
			Codigo:        it.Codigo,
			NCM:           it.NCM,
			CFOP:          it.CFOP,
			Unidade:       it.Unidade,
			Servico:       it.Servico,
			Quantidade:    it.Quantidade,
			ValorUnitario: it.ValorUnitario,
			ValorTotal:    it.ValorTotal,
		})
	}
	return out
}
