package fiscal_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/domain/fiscal"
)

func docAutorizado() *entity.FiscalDocument {
	return &entity.FiscalDocument{
		ID:        "doc-1",
		Status:    entity.StatusAuthorized,
		Protocolo: "135230000000001",
	}
}

// ── Justificativa: limites exatos 15–255 ─────────────────────────────────────

func TestValidateJustificativa_Limites(t *testing.T) {
	assert.Error(t, fiscal.ValidateJustificativa(strings.Repeat("a", 14)),
		"14 caracteres deve ser rejeitado")
	assert.NoError(t, fiscal.ValidateJustificativa(strings.Repeat("a", 15)))
	assert.NoError(t, fiscal.ValidateJustificativa(strings.Repeat("a", 255)))
	assert.Error(t, fiscal.ValidateJustificativa(strings.Repeat("a", 256)),
		"256 caracteres deve ser rejeitado")
}

func TestValidateJustificativa_ContaRunes(t *testing.T) {
	// 15 caracteres acentuados ocupam mais de 15 bytes; o limite é por caractere.
	assert.NoError(t, fiscal.ValidateJustificativa(strings.Repeat("ã", 15)))
}

// ── Cancelamento: pré-condições antes de qualquer rede ───────────────────────

func TestValidateCancelamento_OK(t *testing.T) {
	err := fiscal.ValidateCancelamento(docAutorizado(), strings.Repeat("a", 20))
	assert.NoError(t, err)
}

func TestValidateCancelamento_DocumentoDraft(t *testing.T) {
	doc := docAutorizado()
	doc.Status = entity.StatusDraft
	doc.Protocolo = ""

	err := fiscal.ValidateCancelamento(doc, strings.Repeat("a", 20))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "o erro deve nomear a condição de estado inválido")
}

func TestValidateCancelamento_SemProtocolo(t *testing.T) {
	doc := docAutorizado()
	doc.Protocolo = ""

	err := fiscal.ValidateCancelamento(doc, strings.Repeat("a", 20))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestValidateCancelamento_JustificativaCurta(t *testing.T) {
	err := fiscal.ValidateCancelamento(docAutorizado(), "muito curta")
	assert.ErrorIs(t, err, fiscal.ErrJustificativaInvalida)
}

// ── Documento: totais derivados dos itens ────────────────────────────────────

func docComItens() (*entity.FiscalDocument, []*entity.DocumentItem, *entity.Company) {
	itens := []*entity.DocumentItem{
		{
			NumeroItem: 1, Descricao: "Mercadoria A", CFOP: "5102", Unidade: "UN",
			Quantidade:    decimal.NewFromInt(2),
			ValorUnitario: decimal.NewFromFloat(50),
			ValorTotal:    decimal.NewFromFloat(100),
		},
	}
	doc := &entity.FiscalDocument{
		Numero: 42, Serie: 1, Modelo: "55", Emissao: time.Now(),
		Destinatario: entity.Destinatario{Nome: "Cliente Exemplo", CPFCNPJ: "52998224725"},
	}
	doc.RecalcularTotais(itens)
	emp := &entity.Company{CNPJ: "11222333000181", UF: "SP"}
	return doc, itens, emp
}

func TestValidateDocumento_OK(t *testing.T) {
	doc, itens, emp := docComItens()
	assert.NoError(t, fiscal.ValidateDocumento(doc, itens, emp))
}

func TestValidateDocumento_TotaisCoerentes(t *testing.T) {
	doc, itens, _ := docComItens()

	// goods=100.00, services=0.00 → grand total 100.00
	assert.True(t, doc.VProdutos.Equal(decimal.NewFromFloat(100)))
	assert.True(t, doc.VServicos.Equal(decimal.Zero))
	assert.True(t, doc.VTotal.Equal(decimal.NewFromFloat(100)))

	// adulterar o total sem recalcular deve falhar
	doc.VTotal = decimal.NewFromFloat(90)
	emp := &entity.Company{CNPJ: "11222333000181", UF: "SP"}
	assert.ErrorIs(t, fiscal.ValidateDocumento(doc, itens, emp), fiscal.ErrDocumentoInvalido)
}

func TestValidateDocumento_SemItens(t *testing.T) {
	doc, _, emp := docComItens()
	err := fiscal.ValidateDocumento(doc, nil, emp)
	assert.ErrorIs(t, err, fiscal.ErrDocumentoInvalido)
}

func TestValidateDocumento_CNPJEmitenteInvalido(t *testing.T) {
	doc, itens, emp := docComItens()
	emp.CNPJ = "11222333000199"
	assert.Error(t, fiscal.ValidateDocumento(doc, itens, emp))
}

func TestValidateDocumento_DestinatarioSemDocumento(t *testing.T) {
	doc, itens, emp := docComItens()
	doc.Destinatario.CPFCNPJ = "123"
	assert.Error(t, fiscal.ValidateDocumento(doc, itens, emp))
}

func TestRecalcularTotais_MercadoriaEServico(t *testing.T) {
	itens := []*entity.DocumentItem{
		{ValorTotal: decimal.NewFromFloat(100), Servico: false},
		{ValorTotal: decimal.NewFromFloat(35.5), Servico: true},
	}
	doc := &entity.FiscalDocument{}
	doc.RecalcularTotais(itens)

	assert.True(t, doc.VProdutos.Equal(decimal.NewFromFloat(100)))
	assert.True(t, doc.VServicos.Equal(decimal.NewFromFloat(35.5)))
	assert.True(t, doc.VTotal.Equal(decimal.NewFromFloat(135.5)))
}
