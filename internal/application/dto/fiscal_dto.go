package dto

import "github.com/shopspring/decimal"

// CreateDocumentRequest body para POST /api/documents.
type CreateDocumentRequest struct {
	CompanyID string `json:"company_id"`
	Numero    int64  `json:"numero"`
	Serie     int    `json:"serie"`
	Natureza  string `json:"natureza,omitempty"` // default "VENDA"

	Destinatario DestinatarioRequest   `json:"destinatario"`
	Itens        []DocumentItemRequest `json:"itens"`
}

// DestinatarioRequest snapshot do destinatário no momento da emissão.
type DestinatarioRequest struct {
	Nome            string `json:"nome"`
	CPFCNPJ         string `json:"cpf_cnpj"`
	IE              string `json:"ie,omitempty"`
	Logradouro      string `json:"logradouro,omitempty"`
	Numero          string `json:"numero,omitempty"`
	Bairro          string `json:"bairro,omitempty"`
	Municipio       string `json:"municipio,omitempty"`
	CodigoMunicipio string `json:"codigo_municipio,omitempty"`
	UF              string `json:"uf,omitempty"`
	CEP             string `json:"cep,omitempty"`
}

// DocumentItemRequest linha do documento.
type DocumentItemRequest struct {
	Descricao string `json:"descricao"`
	Codigo    string `json:"codigo"`
	NCM       string `json:"ncm,omitempty"`
	CFOP      string `json:"cfop,omitempty"`
	Unidade   string `json:"unidade,omitempty"` // default "UN"
	Servico   bool   `json:"servico,omitempty"`

	Quantidade    decimal.Decimal `json:"quantidade"`
	ValorUnitario decimal.Decimal `json:"valor_unitario"`

	CST          string          `json:"cst,omitempty"`
	BaseCalculo  decimal.Decimal `json:"base_calculo,omitempty"`
	Aliquota     decimal.Decimal `json:"aliquota,omitempty"`
	ValorImposto decimal.Decimal `json:"valor_imposto,omitempty"`
}

// CancelDocumentRequest body para POST /api/documents/:id/cancelar.
type CancelDocumentRequest struct {
	Justificativa string `json:"justificativa"`
}

// DocumentResponse documento completo para GET /api/documents/:id.
type DocumentResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Numero    int64  `json:"numero"`
	Serie     int    `json:"serie"`
	Modelo    string `json:"modelo"`
	Chave     string `json:"chave,omitempty"`
	Ambiente  string `json:"ambiente"`
	Emissao   string `json:"emissao"`
	Natureza  string `json:"natureza"`
	Status    string `json:"status"`

	Destinatario DestinatarioRequest    `json:"destinatario"`
	Itens        []DocumentItemResponse `json:"itens,omitempty"`

	VProdutos decimal.Decimal `json:"v_produtos"`
	VServicos decimal.Decimal `json:"v_servicos"`
	VTotal    decimal.Decimal `json:"v_total"`

	Protocolo             string `json:"protocolo,omitempty"`
	ProtocoloCancelamento string `json:"protocolo_cancelamento,omitempty"`
	Recibo                string `json:"recibo,omitempty"`
	Justificativa         string `json:"justificativa,omitempty"`
	AutorizadoEm          string `json:"autorizado_em,omitempty"`
}

// DocumentItemResponse linha na resposta.
type DocumentItemResponse struct {
	NumeroItem    int             `json:"numero_item"`
	Descricao     string          `json:"descricao"`
	Codigo        string          `json:"codigo"`
	NCM           string          `json:"ncm,omitempty"`
	CFOP          string          `json:"cfop,omitempty"`
	Unidade       string          `json:"unidade"`
	Servico       bool            `json:"servico"`
	Quantidade    decimal.Decimal `json:"quantidade"`
	ValorUnitario decimal.Decimal `json:"valor_unitario"`
	ValorTotal    decimal.Decimal `json:"valor_total"`
}

// DocumentStatusDTO resposta leve para GET /api/documents/:id/status.
// O frontend consulta este endpoint até o status chegar a um estado final.
type DocumentStatusDTO struct {
	ID                    string `json:"id"`
	Status                string `json:"status"` // DRAFT|TRANSMITTED|AUTHORIZED|REJECTED|DENIED|CANCELED
	Chave                 string `json:"chave,omitempty"`
	Protocolo             string `json:"protocolo,omitempty"`
	ProtocoloCancelamento string `json:"protocolo_cancelamento,omitempty"`
	Recibo                string `json:"recibo,omitempty"`
	AutorizadoEm          string `json:"autorizado_em,omitempty"`
}

// TransmitResultDTO resultado da transmissão/consulta para o chamador HTTP.
type TransmitResultDTO struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Chave     string `json:"chave,omitempty"`
	Protocolo string `json:"protocolo,omitempty"`
	Recibo    string `json:"recibo,omitempty"`
	CStat     string `json:"cstat,omitempty"`
	Motivo    string `json:"motivo,omitempty"`
}
