package sefaz

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// Namespaces WSDL por operação (SOAP 1.2, webservices versão 4).
const (
	NamespaceSOAP12 = "http://www.w3.org/2003/05/soap-envelope"

	NsWsdlAutorizacao = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"
	NsWsdlConsulta    = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeConsultaProtocolo4"
	NsWsdlEvento      = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRecepcaoEvento4"
)

// EnvelopeBuilder monta lotes, eventos, consultas e o envelope SOAP. Todos os
// fragmentos internos saem sem prólogo: apenas o envelope externo carrega um,
// e prólogo aninhado é recusado pelo webservice antes de qualquer validação.
type EnvelopeBuilder struct{}

// NewEnvelopeBuilder cria o builder.
func NewEnvelopeBuilder() *EnvelopeBuilder {
	return &EnvelopeBuilder{}
}

// BuildLote embrulha a NF-e assinada em enviNFe com indSinc=1 (processamento
// síncrono; a SEFAZ pode mesmo assim responder com recibo para consulta
// posterior). idLote: numérico, até 15 dígitos.
func (b *EnvelopeBuilder) BuildLote(idLote string, nfeAssinada []byte) ([]byte, error) {
	if idLote == "" {
		return nil, fmt.Errorf("sefaz: idLote é obrigatório")
	}
	if len(nfeAssinada) == 0 {
		return nil, fmt.Errorf("sefaz: lote sem NF-e")
	}
	var buf bytes.Buffer
	buf.WriteString(`<enviNFe xmlns="` + NamespaceNFe + `" versao="` + nfe.VersaoLayout + `">`)
	buf.WriteString(`<idLote>` + idLote + `</idLote>`)
	buf.WriteString(`<indSinc>1</indSinc>`)
	buf.Write(stripProlog(nfeAssinada))
	buf.WriteString(`</enviNFe>`)
	return buf.Bytes(), nil
}

// EventoCancelamentoParams são os dados do evento de cancelamento.
type EventoCancelamentoParams struct {
	Chave         string
	Protocolo     string // nProt da autorização
	Justificativa string
	OrgaoUF       string // cOrgao (código IBGE da UF da chave)
	Ambiente      string
	Emissao       time.Time // dhEvento
}

// EventoID devolve o Id do infEvento: "ID" + tpEvento + chave + nSeqEvento.
// É o alvo da assinatura do evento.
func (p EventoCancelamentoParams) EventoID() string {
	return "ID" + nfe.EventoCancelamento + p.Chave + "01"
}

// BuildEventoCancelamento gera o elemento evento (ainda sem assinatura). O
// chamador assina apontando para EventoID() e depois embrulha com
// BuildEnvEvento.
func (b *EnvelopeBuilder) BuildEventoCancelamento(p EventoCancelamentoParams) ([]byte, error) {
	if err := nfe.ValidateChave(p.Chave); err != nil {
		return nil, fmt.Errorf("sefaz: chave do evento: %w", err)
	}
	if p.Protocolo == "" {
		return nil, fmt.Errorf("sefaz: protocolo de autorização é obrigatório no cancelamento")
	}
	if p.OrgaoUF == "" {
		return nil, fmt.Errorf("sefaz: cOrgao é obrigatório")
	}

	// CNPJ do autor do evento: o emitente, extraído da própria chave.
	cnpj := p.Chave[6:20]

	var buf bytes.Buffer
	buf.WriteString(`<evento xmlns="` + NamespaceNFe + `" versao="` + nfe.VersaoEvento + `">`)
	buf.WriteString(`<infEvento Id="` + p.EventoID() + `">`)
	buf.WriteString(`<cOrgao>` + p.OrgaoUF + `</cOrgao>`)
	buf.WriteString(`<tpAmb>` + p.Ambiente + `</tpAmb>`)
	buf.WriteString(`<CNPJ>` + cnpj + `</CNPJ>`)
	buf.WriteString(`<chNFe>` + p.Chave + `</chNFe>`)
	buf.WriteString(`<dhEvento>` + p.Emissao.Format("2006-01-02T15:04:05-07:00") + `</dhEvento>`)
	buf.WriteString(`<tpEvento>` + nfe.EventoCancelamento + `</tpEvento>`)
	buf.WriteString(`<nSeqEvento>1</nSeqEvento>`)
	buf.WriteString(`<verEvento>` + nfe.VersaoEvento + `</verEvento>`)
	buf.WriteString(`<detEvento versao="` + nfe.VersaoEvento + `">`)
	buf.WriteString(`<descEvento>Cancelamento</descEvento>`)
	buf.WriteString(`<nProt>` + p.Protocolo + `</nProt>`)
	buf.WriteString(`<xJust>` + escapeXML(p.Justificativa) + `</xJust>`)
	buf.WriteString(`</detEvento>`)
	buf.WriteString(`</infEvento>`)
	buf.WriteString(`</evento>`)
	return buf.Bytes(), nil
}

// BuildEnvEvento embrulha o evento assinado em envEvento para envio.
func (b *EnvelopeBuilder) BuildEnvEvento(idLote string, eventoAssinado []byte) ([]byte, error) {
	if len(eventoAssinado) == 0 {
		return nil, fmt.Errorf("sefaz: envEvento sem evento")
	}
	var buf bytes.Buffer
	buf.WriteString(`<envEvento xmlns="` + NamespaceNFe + `" versao="` + nfe.VersaoEvento + `">`)
	buf.WriteString(`<idLote>` + idLote + `</idLote>`)
	buf.Write(stripProlog(eventoAssinado))
	buf.WriteString(`</envEvento>`)
	return buf.Bytes(), nil
}

// BuildConsulta gera o consSitNFe para consulta de protocolo pela chave.
func (b *EnvelopeBuilder) BuildConsulta(chave, ambiente string) ([]byte, error) {
	if err := nfe.ValidateChave(chave); err != nil {
		return nil, fmt.Errorf("sefaz: chave da consulta: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(`<consSitNFe xmlns="` + NamespaceNFe + `" versao="` + nfe.VersaoLayout + `">`)
	buf.WriteString(`<tpAmb>` + ambiente + `</tpAmb>`)
	buf.WriteString(`<xServ>CONSULTAR</xServ>`)
	buf.WriteString(`<chNFe>` + chave + `</chNFe>`)
	buf.WriteString(`</consSitNFe>`)
	return buf.Bytes(), nil
}

// WrapSOAP embrulha o payload no envelope SOAP 1.2 da operação. Só o envelope
// carrega prólogo; o payload entra dentro de nfeDadosMsg no namespace WSDL da
// operação.
func (b *EnvelopeBuilder) WrapSOAP(wsdlNS string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString(`<soap12:Envelope xmlns:soap12="` + NamespaceSOAP12 + `">`)
	buf.WriteString(`<soap12:Body>`)
	buf.WriteString(`<nfeDadosMsg xmlns="` + wsdlNS + `">`)
	buf.Write(stripProlog(payload))
	buf.WriteString(`</nfeDadosMsg>`)
	buf.WriteString(`</soap12:Body>`)
	buf.WriteString(`</soap12:Envelope>`)
	return buf.Bytes()
}

// MontarProcNFe monta o nfeProc: NF-e assinada + protNFe de autorização. É o
// artefato distribuível gerado apenas quando o documento é autorizado.
func (b *EnvelopeBuilder) MontarProcNFe(nfeAssinada []byte, protNFe []byte) ([]byte, error) {
	if len(nfeAssinada) == 0 || len(protNFe) == 0 {
		return nil, fmt.Errorf("sefaz: nfeProc exige NF-e assinada e protNFe")
	}
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString(`<nfeProc xmlns="` + NamespaceNFe + `" versao="` + nfe.VersaoLayout + `">`)
	buf.Write(stripProlog(nfeAssinada))
	buf.Write(stripProlog(protNFe))
	buf.WriteString(`</nfeProc>`)
	return buf.Bytes(), nil
}

// stripProlog remove o prólogo XML de um fragmento antes de embuti-lo.
func stripProlog(xmlBytes []byte) []byte {
	trimmed := bytes.TrimSpace(xmlBytes)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if idx := bytes.Index(trimmed, []byte("?>")); idx >= 0 {
			return bytes.TrimSpace(trimmed[idx+2:])
		}
	}
	return trimmed
}

// escapeXML escapa conteúdo textual livre (a justificativa vem do usuário).
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return escaper.Replace(s)
}
