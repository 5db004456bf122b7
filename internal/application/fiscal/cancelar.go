package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/emitefacil/emissor-api/internal/application/dto"
	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	domfiscal "github.com/emitefacil/emissor-api/internal/domain/fiscal"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// Cancelar registra o evento de cancelamento de um documento AUTHORIZED.
//
// A justificativa (15–255 caracteres) é validada ANTES de qualquer tráfego e
// persistida mesmo quando a SEFAZ recusa o evento. O documento só vai a
// CANCELED quando o retorno homologar o cancelamento (cStat 135 ou 155).
func (s *Service) Cancelar(ctx context.Context, documentID, justificativa string) (*dto.TransmitResultDTO, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Pré-condições locais: estado, protocolo e justificativa. Nada sai pela
	// rede se alguma falhar.
	if err := domfiscal.ValidateCancelamento(doc, justificativa); err != nil {
		return nil, err
	}

	company, err := s.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	orgao, ok := nfe.OrgaoUF(company.UF)
	if !ok {
		return nil, fmt.Errorf("UF do emitente desconhecida %q: %w", company.UF, domain.ErrInvalidInput)
	}

	// A justificativa fica registrada independente do desfecho do evento.
	if err := s.docs.UpdateJustificativa(ctx, doc.ID, justificativa); err != nil {
		return nil, err
	}
	doc.Justificativa = justificativa

	cert, err := s.carregarCertificado(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	params := sefaz.EventoCancelamentoParams{
		Chave:         doc.Chave,
		Protocolo:     doc.Protocolo,
		Justificativa: justificativa,
		OrgaoUF:       orgao,
		Ambiente:      doc.Ambiente,
		Emissao:       time.Now(),
	}
	evento, err := s.envelope.BuildEventoCancelamento(params)
	if err != nil {
		return nil, err
	}

	assinado, err := s.signer.Sign(evento, params.EventoID(), cert)
	if err != nil {
		return nil, fmt.Errorf("assinar evento de cancelamento: %w", err)
	}

	envEvento, err := s.envelope.BuildEnvEvento(idLote(), assinado)
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Enviar(ctx, sefaz.OperacaoEvento, doc.Ambiente, envEvento, cert)
	if err != nil {
		s.log.Warn().Err(err).Str("document_id", doc.ID).
			Msg("evento de cancelamento sem desfecho conhecido")
		return nil, err
	}

	res, err := s.interp.InterpretarEvento(resp.Corpo)
	if err != nil {
		return nil, fmt.Errorf("retorno do evento não interpretável: %v: %w", err, domain.ErrUnknownOutcome)
	}

	out := &dto.TransmitResultDTO{
		ID:     doc.ID,
		Status: string(doc.Status),
		Chave:  doc.Chave,
		CStat:  res.CStat,
		Motivo: res.XMotivo,
	}

	if !nfe.IsCancelamentoHomologado(res.CStat) {
		// Evento recusado: o documento continua AUTHORIZED, a justificativa
		// fica registrada e o chamador decide se tenta de novo.
		s.log.Info().
			Str("document_id", doc.ID).
			Str("cstat", res.CStat).
			Str("motivo", res.XMotivo).
			Msg("cancelamento recusado pela SEFAZ")
		return out, nil
	}

	doc.Status = entity.StatusCanceled
	doc.ProtocoloCancelamento = res.Protocolo
	if err := s.docs.UpdateLifecycle(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("protocolo_cancelamento", res.Protocolo).
		Msg("cancelamento homologado")

	out.Status = string(doc.Status)
	out.Protocolo = res.Protocolo
	return out, nil
}
