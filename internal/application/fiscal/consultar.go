package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/emitefacil/emissor-api/internal/application/dto"
	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
)

// Consultar pergunta à SEFAZ a situação atual do documento pela chave e
// reconcilia o status local de forma oportunista. A operação é idempotente:
// consultar um documento já resolvido não muda nada, e a resposta nunca faz o
// status regredir.
func (s *Service) Consultar(ctx context.Context, documentID string) (*dto.TransmitResultDTO, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Chave == "" {
		return nil, fmt.Errorf("documento ainda não tem chave de acesso, nada a consultar: %w",
			domain.ErrInvalidState)
	}

	cert, err := s.carregarCertificado(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	consulta, err := s.envelope.BuildConsulta(doc.Chave, doc.Ambiente)
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Enviar(ctx, sefaz.OperacaoConsulta, doc.Ambiente, consulta, cert)
	if err != nil {
		return nil, err
	}

	res, err := s.interp.Interpretar(resp.Corpo)
	if err != nil {
		return nil, fmt.Errorf("retorno da consulta não interpretável: %v: %w", err, domain.ErrUnknownOutcome)
	}

	// O protocolo e o carimbo já persistidos sempre aparecem na resposta:
	// consultar duas vezes um documento resolvido devolve o mesmo protocolo.
	out := &dto.TransmitResultDTO{
		ID:        doc.ID,
		Status:    string(doc.Status),
		Chave:     doc.Chave,
		Protocolo: doc.Protocolo,
		CStat:     res.CStat,
		Motivo:    res.XMotivo,
	}

	alvo, acionavel := StatusDaConsulta(res.CStat)
	if !acionavel || !DeveReconciliar(doc.Status, alvo) {
		return out, nil
	}

	doc.Status = alvo
	prot := res.ProtocoloDaChave(doc.Chave)
	switch alvo {
	case entity.StatusAuthorized:
		if prot != nil {
			doc.Protocolo = prot.NumeroProtocolo
			autorizadoEm := time.Now()
			if t, err := time.Parse(time.RFC3339, prot.DhRecbto); err == nil {
				autorizadoEm = t
			}
			doc.AutorizadoEm = &autorizadoEm
			// nfeProc só é montável se o artefato assinado desta tentativa
			// ainda existe localmente.
			if doc.XMLAssinado != "" && prot.Bruto != "" {
				if proc, err := s.envelope.MontarProcNFe([]byte(doc.XMLAssinado), []byte(prot.Bruto)); err == nil {
					doc.XMLAutorizado = string(proc)
				}
			}
		}
	case entity.StatusDenied:
		if prot != nil {
			doc.Protocolo = prot.NumeroProtocolo
		}
	}

	if err := s.docs.UpdateLifecycle(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("cstat", res.CStat).
		Str("status", string(doc.Status)).
		Msg("situação reconciliada via consulta")

	out.Status = string(doc.Status)
	out.Protocolo = doc.Protocolo
	return out, nil
}

// Status devolve a projeção leve para polling, direto do banco.
func (s *Service) Status(ctx context.Context, documentID string) (*entity.FiscalDocument, error) {
	return s.docs.GetStatus(ctx, documentID)
}

// Obter carrega o documento completo com itens.
func (s *Service) Obter(ctx context.Context, documentID string) (*entity.FiscalDocument, []*entity.DocumentItem, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	itens, err := s.docs.GetItens(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, itens, nil
}
