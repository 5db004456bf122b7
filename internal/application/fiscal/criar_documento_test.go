package fiscal

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emitefacil/emissor-api/internal/application/dto"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	domfiscal "github.com/emitefacil/emissor-api/internal/domain/fiscal"
)

func requisicaoTeste() *dto.CreateDocumentRequest {
	return &dto.CreateDocumentRequest{
		CompanyID: "emp-1",
		Numero:    42,
		Serie:     1,
		Destinatario: dto.DestinatarioRequest{
			Nome:    "CLIENTE TESTE",
			CPFCNPJ: "529.982.247-25",
		},
		Itens: []dto.DocumentItemRequest{
			{
				Descricao:     "PRODUTO A",
				Codigo:        "P001",
				NCM:           "61091000",
				Quantidade:    decimal.NewFromInt(3),
				ValorUnitario: decimal.NewFromFloat(10.50),
			},
			{
				Descricao:     "SERVICO B",
				Codigo:        "S001",
				Servico:       true,
				Quantidade:    decimal.NewFromInt(1),
				ValorUnitario: decimal.NewFromFloat(200),
			},
		},
	}
}

func TestCriarDocumento(t *testing.T) {
	amb := novoAmbiente()

	doc, itens, err := amb.svc.CriarDocumento(context.Background(), requisicaoTeste())
	require.NoError(t, err)

	assert.Equal(t, entity.StatusDraft, doc.Status)
	assert.Equal(t, "55", doc.Modelo)
	assert.Equal(t, "2", doc.Ambiente, "ambiente vem do cadastro da empresa")
	assert.Equal(t, "VENDA", doc.Natureza)
	assert.Empty(t, doc.Chave, "chave só é calculada na transmissão")

	// snapshot do destinatário normalizado.
	assert.Equal(t, "52998224725", doc.Destinatario.CPFCNPJ)

	// totais derivados dos itens: 3 × 10.50 mercadoria + 200 serviço.
	require.Len(t, itens, 2)
	assert.Equal(t, "31.50", doc.VProdutos.StringFixed(2))
	assert.Equal(t, "200.00", doc.VServicos.StringFixed(2))
	assert.Equal(t, "231.50", doc.VTotal.StringFixed(2))

	assert.Equal(t, 1, itens[0].NumeroItem)
	assert.Equal(t, "UN", itens[0].Unidade)
	assert.Equal(t, "5102", itens[0].CFOP, "CFOP default para mercadoria")
	assert.Empty(t, itens[1].CFOP, "serviço não ganha CFOP de mercadoria")

	assert.Equal(t, 1, amb.docs.createCalls)
	assert.Equal(t, 0, amb.transport.calls, "criação nunca toca a rede")
}

func TestCriarDocumentoDestinatarioInvalido(t *testing.T) {
	amb := novoAmbiente()
	req := requisicaoTeste()
	req.Destinatario.CPFCNPJ = "12345678900" // CPF com dígito verificador errado

	_, _, err := amb.svc.CriarDocumento(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domfiscal.ErrDocumentoInvalido)
	assert.Equal(t, 0, amb.docs.createCalls, "nada é persistido quando a validação falha")
}

func TestCriarDocumentoSemItens(t *testing.T) {
	amb := novoAmbiente()
	req := requisicaoTeste()
	req.Itens = nil

	_, _, err := amb.svc.CriarDocumento(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domfiscal.ErrDocumentoInvalido)
}

func TestCriarDocumentoEmpresaInexistente(t *testing.T) {
	amb := novoAmbiente()
	req := requisicaoTeste()
	req.CompanyID = "emp-999"

	_, _, err := amb.svc.CriarDocumento(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 0, amb.docs.createCalls)
}
