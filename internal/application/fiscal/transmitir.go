package fiscal

import (
	"context"
	"crypto/tls"
	"fmt"
	"strconv"
	"time"

	"github.com/emitefacil/emissor-api/internal/application/dto"
	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// Transmitir assina (se ainda não assinado) e envia o documento à SEFAZ.
//
// O artefato assinado é persistido ANTES de qualquer tráfego de rede e
// reaproveitado quando a mesma tentativa é reenviada: falha parcial depois da
// assinatura não exige reassinar. Erro de transporte ou HTTP != 200 é
// desfecho desconhecido: o status local NÃO muda (o chamador pode retransmitir
// ou consultar); TRANSMITTED só é gravado quando a SEFAZ confirma o
// recebimento do lote sem protocolar (cStat 103/105).
//
// Retransmissão a partir de REJECTED é uma tentativa NOVA: a chave e a
// assinatura anteriores são descartadas e o documento corrigido é reassinado.
func (s *Service) Transmitir(ctx context.Context, documentID string) (*dto.TransmitResultDTO, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != entity.StatusDraft && doc.Status != entity.StatusRejected {
		return nil, fmt.Errorf("transmissão exige DRAFT ou REJECTED, estado atual %s: %w",
			doc.Status, domain.ErrInvalidState)
	}
	if doc.Status == entity.StatusRejected {
		doc.Chave = ""
		doc.XMLAssinado = ""
	}

	company, err := s.companies.GetByID(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}
	itens, err := s.docs.GetItens(ctx, documentID)
	if err != nil {
		return nil, err
	}

	cert, err := s.carregarCertificado(ctx, doc.CompanyID)
	if err != nil {
		return nil, err
	}

	// Assinar apenas se não existe artefato reaproveitável desta tentativa.
	if !doc.TemAssinaturaValida() {
		if err := s.assinarDocumento(ctx, doc, company, itens, cert); err != nil {
			return nil, err
		}
	}

	lote, err := s.envelope.BuildLote(idLote(), []byte(doc.XMLAssinado))
	if err != nil {
		return nil, err
	}

	resp, err := s.transport.Enviar(ctx, sefaz.OperacaoAutorizacao, doc.Ambiente, lote, cert)
	if err != nil {
		// Desfecho desconhecido: o status local fica como está e o artefato
		// assinado permanece reaproveitável para retransmitir ou consultar.
		s.log.Warn().Err(err).Str("document_id", doc.ID).
			Msg("transmissão sem desfecho conhecido, status local inalterado")
		return nil, err
	}

	res, err := s.interp.Interpretar(resp.Corpo)
	if err != nil {
		return nil, fmt.Errorf("resposta da SEFAZ não interpretável, consultar depois: %v: %w",
			err, domain.ErrUnknownOutcome)
	}

	return s.reconciliarRetornoLote(ctx, doc, res)
}

// assinarDocumento calcula a chave, monta o XML, assina e persiste o
// artefato. A chave fica fixa para esta tentativa de transmissão.
func (s *Service) assinarDocumento(ctx context.Context, doc *entity.FiscalDocument, company *entity.Company, itens []*entity.DocumentItem, cert tls.Certificate) error {
	cuf, ok := nfe.OrgaoUF(company.UF)
	if !ok {
		return fmt.Errorf("UF do emitente desconhecida %q: %w", company.UF, domain.ErrInvalidInput)
	}
	cnf, err := codigoNumerico()
	if err != nil {
		return err
	}
	chave, err := s.chaves.Calculate(&nfe.ChaveParams{
		CodigoUF: cuf,
		AAMM:     doc.Emissao.Format("0601"),
		CNPJ:     nfe.OnlyDigits(company.CNPJ),
		Modelo:   doc.Modelo,
		Serie:    fmt.Sprintf("%03d", doc.Serie),
		Numero:   fmt.Sprintf("%09d", doc.Numero),
		TpEmis:   nfe.TpEmisNormal,
		CNF:      cnf,
	})
	if err != nil {
		return fmt.Errorf("calcular chave de acesso: %w", err)
	}
	doc.Chave = chave

	xmlBytes, err := s.builder.Build(&sefaz.BuildContext{
		Documento: doc,
		Empresa:   company,
		Itens:     itens,
	})
	if err != nil {
		return err
	}

	assinado, err := s.signer.Sign(xmlBytes, "NFe"+chave, cert)
	if err != nil {
		return fmt.Errorf("assinar documento: %w", err)
	}
	doc.XMLAssinado = string(assinado)

	return s.docs.UpdateArtefatoAssinado(ctx, doc)
}

func idLote() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// reconciliarRetornoLote aplica o retorno da autorização no documento.
func (s *Service) reconciliarRetornoLote(ctx context.Context, doc *entity.FiscalDocument, res *sefaz.Resultado) (*dto.TransmitResultDTO, error) {
	out := &dto.TransmitResultDTO{
		ID:     doc.ID,
		Status: string(doc.Status),
		Chave:  doc.Chave,
		CStat:  res.CStat,
		Motivo: res.XMotivo,
	}

	// Lote aceito sem protocolo: TRANSMITTED com o recibo guardado, a
	// consulta resolve depois.
	if nfe.IsLotePendente(res.CStat) {
		doc.Status = entity.StatusTransmitted
		doc.Recibo = res.Recibo
		if err := s.docs.UpdateLifecycle(ctx, doc); err != nil {
			return nil, err
		}
		out.Status = string(doc.Status)
		out.Recibo = res.Recibo
		return out, nil
	}

	prot := res.ProtocoloDaChave(doc.Chave)
	if prot == nil {
		// Lote recusado antes de protocolar (ex: cStat de erro de schema):
		// rejeição com o motivo do lote.
		doc.Status = entity.StatusRejected
		if err := s.docs.UpdateLifecycle(ctx, doc); err != nil {
			return nil, err
		}
		out.Status = string(doc.Status)
		return out, nil
	}

	out.CStat = prot.CStat
	out.Motivo = prot.XMotivo
	return s.aplicarProtocolo(ctx, doc, prot, out)
}

// aplicarProtocolo grava o desfecho do protNFe: autorização monta o nfeProc,
// denegação persiste o protocolo de denegação, o resto é rejeição.
func (s *Service) aplicarProtocolo(ctx context.Context, doc *entity.FiscalDocument, prot *sefaz.Protocolo, out *dto.TransmitResultDTO) (*dto.TransmitResultDTO, error) {
	alvo := StatusDoProtocolo(prot.CStat)
	if !DeveReconciliar(doc.Status, alvo) {
		out.Status = string(doc.Status)
		return out, nil
	}

	doc.Status = alvo
	switch alvo {
	case entity.StatusAuthorized:
		doc.Protocolo = prot.NumeroProtocolo
		autorizadoEm := time.Now()
		if t, err := time.Parse(time.RFC3339, prot.DhRecbto); err == nil {
			autorizadoEm = t
		}
		doc.AutorizadoEm = &autorizadoEm

		proc, err := s.envelope.MontarProcNFe([]byte(doc.XMLAssinado), []byte(prot.Bruto))
		if err != nil {
			return nil, fmt.Errorf("montar nfeProc: %w", err)
		}
		doc.XMLAutorizado = string(proc)

	case entity.StatusDenied:
		// O protocolo de denegação também é persistido; a chave fica
		// inutilizada e o documento nunca mais avança.
		doc.Protocolo = prot.NumeroProtocolo
	}

	if err := s.docs.UpdateLifecycle(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("cstat", prot.CStat).
		Str("status", string(doc.Status)).
		Str("protocolo", prot.NumeroProtocolo).
		Msg("retorno da SEFAZ reconciliado")

	out.Status = string(doc.Status)
	out.Protocolo = doc.Protocolo
	return out, nil
}
