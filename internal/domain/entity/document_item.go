package entity

import "github.com/shopspring/decimal"

// DocumentItem é uma linha do documento fiscal. Os campos de imposto chegam
// pré-calculados pela camada de negócio; este núcleo só os mapeia para o XML.
// Os itens ficam imutáveis quando o documento entra em TRANSMITTED.
type DocumentItem struct {
	ID         string
	DocumentID string
	NumeroItem int // ordem do item no documento (1-based)

	Descricao string
	Codigo    string // código interno do produto/serviço
	NCM       string // classificação fiscal da mercadoria
	CFOP      string // código fiscal da operação
	Unidade   string // UN, KG, ...
	Servico   bool   // true = serviço (compõe vServicos), false = mercadoria

	Quantidade    decimal.Decimal
	ValorUnitario decimal.Decimal
	ValorTotal    decimal.Decimal

	// Tributação por item (ICMS para mercadoria, ISSQN para serviço).
	// CST no regime normal, CSOSN no Simples Nacional — escolha feita pelo
	// builder a partir do CRT da empresa.
	CST          string
	BaseCalculo  decimal.Decimal
	Aliquota     decimal.Decimal
	ValorImposto decimal.Decimal
}
