package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status do ciclo de vida do documento fiscal. O status é autoritativo: quem
// decide é a SEFAZ, o reconciliador apenas reflete as respostas dela.
//
//	DRAFT → TRANSMITTED → {AUTHORIZED | REJECTED | DENIED}
//	AUTHORIZED → CANCELED
//
// Transições só andam para frente. Um documento REJECTED pode ser corrigido e
// retransmitido como nova tentativa (nova assinatura), nunca ressuscitado no
// estado anterior.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusTransmitted Status = "TRANSMITTED"
	StatusAuthorized  Status = "AUTHORIZED"
	StatusRejected    Status = "REJECTED"
	StatusDenied      Status = "DENIED"
	StatusCanceled    Status = "CANCELED"
)

// transicoes válidas; tudo que não está aqui é regressão e é recusado.
var transicoes = map[Status][]Status{
	StatusDraft:       {StatusTransmitted, StatusAuthorized, StatusRejected, StatusDenied},
	StatusTransmitted: {StatusAuthorized, StatusRejected, StatusDenied},
	// REJECTED permite nova tentativa de transmissão após correção.
	StatusRejected:   {StatusTransmitted, StatusAuthorized, StatusRejected, StatusDenied},
	StatusAuthorized: {StatusCanceled},
}

// PodeAvancarPara informa se a transição de s para next é permitida.
// AUTHORIZED e CANCELED nunca regridem, independente do que uma resposta
// posterior alegar: o artefato assinado no momento da autorização é o
// registro legal.
func (s Status) PodeAvancarPara(next Status) bool {
	if s == next {
		return false
	}
	for _, t := range transicoes[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal informa se o status não admite mais nenhuma transição.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusDenied
}

// FiscalDocument é a entidade central: a NF-e em emissão.
//
// Emitente e destinatário são snapshots capturados na montagem do documento,
// não referências vivas — o documento legal não pode mudar retroativamente se
// o cadastro do cliente for editado depois.
type FiscalDocument struct {
	ID        string
	CompanyID string

	Numero   int64
	Serie    int
	Modelo   string // "55" = NF-e
	Chave    string // chave de acesso (44 dígitos); fixa dentro de uma tentativa de transmissão
	Ambiente string // "1" = produção, "2" = homologação; vem do cadastro da empresa
	Emissao  time.Time
	Natureza string // natureza da operação (ex: "VENDA")

	Destinatario Destinatario // snapshot

	// Totais derivados dos itens; nunca alterados de forma independente.
	VProdutos decimal.Decimal
	VServicos decimal.Decimal
	VTotal    decimal.Decimal

	Status Status

	// XMLAssinado: artefato assinado, imutável dentro de uma tentativa de
	// transmissão. XMLAutorizado: nfeProc (XML assinado + protocolo), gerado
	// apenas em AUTHORIZED.
	XMLAssinado   string
	XMLAutorizado string

	// Protocolo de autorização (ou denegação) e protocolo do evento de
	// cancelamento, emitidos pela SEFAZ.
	Protocolo             string
	ProtocoloCancelamento string
	// Recibo do lote quando a SEFAZ aceita o lote mas ainda não protocolou.
	Recibo string

	// Justificativa de cancelamento (15–255 caracteres); persiste mesmo se o
	// evento for recusado.
	Justificativa string

	AutorizadoEm *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RecalcularTotais rederiva os totais do documento a partir dos itens.
// vTotal = vProdutos + vServicos, sempre.
func (d *FiscalDocument) RecalcularTotais(itens []*DocumentItem) {
	prod := decimal.Zero
	serv := decimal.Zero
	for _, it := range itens {
		if it.Servico {
			serv = serv.Add(it.ValorTotal)
		} else {
			prod = prod.Add(it.ValorTotal)
		}
	}
	d.VProdutos = prod.Round(2)
	d.VServicos = serv.Round(2)
	d.VTotal = prod.Add(serv).Round(2)
}

// TemAssinaturaValida informa se já existe artefato assinado reaproveitável:
// falha parcial depois da assinatura não exige reassinar.
func (d *FiscalDocument) TemAssinaturaValida() bool {
	return d.XMLAssinado != ""
}
