package fiscal

// Mocks e fixtures compartilhados pelos testes do fluxo de emissão.

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
	"github.com/emitefacil/emissor-api/pkg/logger"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

const (
	cnpjEmpresaTeste = "11222333000181"
	cpfDestTeste     = "52998224725"
)

type mockDocs struct {
	doc   *entity.FiscalDocument
	itens []*entity.DocumentItem

	createCalls        int
	lifecycleStatuses  []entity.Status
	artefatoCalls      int
	justificativaCalls int
	lifecycleErr       error
}

func (m *mockDocs) Create(ctx context.Context, doc *entity.FiscalDocument, itens []*entity.DocumentItem) error {
	m.createCalls++
	if doc.ID == "" {
		doc.ID = "doc-mock"
	}
	m.doc = doc
	m.itens = itens
	return nil
}

func (m *mockDocs) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	if m.doc == nil || m.doc.ID != id {
		return nil, fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
	}
	cp := *m.doc
	return &cp, nil
}

func (m *mockDocs) GetItens(ctx context.Context, documentID string) ([]*entity.DocumentItem, error) {
	return m.itens, nil
}

func (m *mockDocs) UpdateLifecycle(ctx context.Context, doc *entity.FiscalDocument) error {
	if m.lifecycleErr != nil {
		return m.lifecycleErr
	}
	m.lifecycleStatuses = append(m.lifecycleStatuses, doc.Status)
	cp := *doc
	m.doc = &cp
	return nil
}

func (m *mockDocs) UpdateArtefatoAssinado(ctx context.Context, doc *entity.FiscalDocument) error {
	m.artefatoCalls++
	cp := *doc
	m.doc = &cp
	return nil
}

func (m *mockDocs) UpdateJustificativa(ctx context.Context, id, justificativa string) error {
	m.justificativaCalls++
	m.doc.Justificativa = justificativa
	return nil
}

func (m *mockDocs) GetStatus(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return m.GetByID(ctx, id)
}

type mockCompanies struct {
	company *entity.Company
}

func (m *mockCompanies) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	if m.company == nil || m.company.ID != id {
		return nil, fmt.Errorf("empresa %s: %w", id, domain.ErrNotFound)
	}
	return m.company, nil
}

type mockCerts struct {
	calls int
}

func (m *mockCerts) Bundle(ctx context.Context, companyID string) ([]byte, string, error) {
	m.calls++
	return []byte("pkcs12-bundle"), "senha", nil
}

type mockSigner struct {
	calls     int
	targetIDs []string
}

// Sign devolve o XML inalterado; os testes verificam o alvo da referência.
func (m *mockSigner) Sign(xmlBytes []byte, targetID string, cert tls.Certificate) ([]byte, error) {
	m.calls++
	m.targetIDs = append(m.targetIDs, targetID)
	return xmlBytes, nil
}

type mockTransporter struct {
	calls     int
	operacoes []sefaz.Operacao
	payloads  [][]byte

	resposta *sefaz.Resposta
	err      error
}

func (m *mockTransporter) Enviar(ctx context.Context, op sefaz.Operacao, ambiente string, payload []byte, cert tls.Certificate) (*sefaz.Resposta, error) {
	m.calls++
	m.operacoes = append(m.operacoes, op)
	m.payloads = append(m.payloads, payload)
	if m.err != nil {
		return nil, m.err
	}
	return m.resposta, nil
}

type ambiente struct {
	svc       *Service
	docs      *mockDocs
	companies *mockCompanies
	certs     *mockCerts
	signer    *mockSigner
	transport *mockTransporter
}

func novoAmbiente() *ambiente {
	docs := &mockDocs{}
	companies := &mockCompanies{company: empresaTeste()}
	certs := &mockCerts{}
	sig := &mockSigner{}
	tr := &mockTransporter{}

	svc := NewService(
		docs, companies, certs,
		sefaz.NewXMLBuilderService(),
		sefaz.NewEnvelopeBuilder(),
		sig, tr,
		sefaz.NewResponseInterpreter(),
		nil,
		logger.New(logger.Config{Env: "production", Level: "error"}),
	)
	svc.decodeCert = func(bundle []byte, senha string) (tls.Certificate, error) {
		return tls.Certificate{}, nil
	}

	return &ambiente{svc: svc, docs: docs, companies: companies, certs: certs, signer: sig, transport: tr}
}

func empresaTeste() *entity.Company {
	return &entity.Company{
		ID:              "emp-1",
		RazaoSocial:     "EMPRESA TESTE LTDA",
		CNPJ:            cnpjEmpresaTeste,
		IE:              "123456789",
		Logradouro:      "Rua das Flores",
		NumeroEndereco:  "55",
		Bairro:          "Centro",
		Municipio:       "Sao Paulo",
		CodigoMunicipio: "3550308",
		UF:              "SP",
		CEP:             "01000000",
		CRT:             nfe.CRTSimplesNacional,
		Ambiente:        nfe.AmbienteHomologacao,
	}
}

func documentoTeste(status entity.Status) (*entity.FiscalDocument, []*entity.DocumentItem) {
	itens := []*entity.DocumentItem{
		{
			NumeroItem:    1,
			Descricao:     "PRODUTO TESTE",
			Codigo:        "P001",
			NCM:           "61091000",
			CFOP:          "5102",
			Unidade:       "UN",
			Quantidade:    decimal.NewFromInt(2),
			ValorUnitario: decimal.NewFromFloat(50),
			ValorTotal:    decimal.NewFromFloat(100),
		},
	}
	doc := &entity.FiscalDocument{
		ID:        "doc-1",
		CompanyID: "emp-1",
		Numero:    42,
		Serie:     1,
		Modelo:    nfe.ModeloNFe,
		Ambiente:  nfe.AmbienteHomologacao,
		Emissao:   time.Now(),
		Natureza:  "VENDA",
		Destinatario: entity.Destinatario{
			Nome:    "CLIENTE TESTE",
			CPFCNPJ: cpfDestTeste,
		},
		Status: status,
	}
	doc.RecalcularTotais(itens)
	return doc, itens
}

func respostaOK(corpo string) *sefaz.Resposta {
	return &sefaz.Resposta{HTTPStatus: 200, Corpo: []byte(corpo)}
}
