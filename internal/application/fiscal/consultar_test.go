package fiscal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
)

const retornoConsultaAutorizada = `<retConsSitNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
 <cStat>100</cStat><xMotivo>Autorizado o uso da NF-e</xMotivo>
 <protNFe versao="4.00"><infProt>
  <chNFe>35231111222333000181550010000000421123456781</chNFe>
  <dhRecbto>2023-11-10T14:31:02-03:00</dhRecbto>
  <nProt>135230000012345</nProt>
  <cStat>100</cStat><xMotivo>Autorizado o uso da NF-e</xMotivo>
 </infProt></protNFe>
</retConsSitNFe>`

const retornoConsultaNaoConsta = `<retConsSitNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
 <cStat>217</cStat><xMotivo>NF-e nao consta na base de dados da SEFAZ</xMotivo>
</retConsSitNFe>`

const retornoConsultaCancelada = `<retConsSitNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
 <cStat>101</cStat><xMotivo>Cancelamento de NF-e homologado</xMotivo>
</retConsSitNFe>`

func documentoTransmitido() (*entity.FiscalDocument, []*entity.DocumentItem) {
	doc, itens := documentoTeste(entity.StatusTransmitted)
	doc.Chave = "35231111222333000181550010000000421123456781"
	doc.XMLAssinado = `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe` + doc.Chave + `"/></NFe>`
	return doc, itens
}

func TestConsultarResolveTransmitido(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoTransmitido()
	amb.transport.resposta = respostaOK(retornoConsultaAutorizada)

	out, err := amb.svc.Consultar(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusAuthorized), out.Status)
	assert.Equal(t, "135230000012345", out.Protocolo)

	doc := amb.docs.doc
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Equal(t, "135230000012345", doc.Protocolo)
	assert.Contains(t, doc.XMLAutorizado, "<nfeProc", "nfeProc montado a partir do artefato local")

	require.Len(t, amb.transport.operacoes, 1)
	assert.Equal(t, sefaz.OperacaoConsulta, amb.transport.operacoes[0])
	assert.Contains(t, string(amb.transport.payloads[0]), "<consSitNFe")
}

func TestConsultarIdempotenteQuandoJaResolvido(t *testing.T) {
	amb := novoAmbiente()
	doc, itens := documentoAutorizado()
	amb.docs.doc, amb.docs.itens = doc, itens
	amb.transport.resposta = respostaOK(retornoConsultaAutorizada)

	primeira, err := amb.svc.Consultar(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusAuthorized), primeira.Status)
	assert.Equal(t, doc.Protocolo, primeira.Protocolo)
	assert.Empty(t, amb.docs.lifecycleStatuses, "mesmo status: nenhuma escrita de ciclo de vida")

	// Duas consultas seguidas devolvem o mesmo protocolo.
	segunda, err := amb.svc.Consultar(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, primeira.Protocolo, segunda.Protocolo)
	assert.Empty(t, amb.docs.lifecycleStatuses)
}

func TestConsultarNaoConstaNaoMudaNada(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoTransmitido()
	amb.transport.resposta = respostaOK(retornoConsultaNaoConsta)

	out, err := amb.svc.Consultar(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "217", out.CStat)
	assert.Equal(t, entity.StatusTransmitted, amb.docs.doc.Status)
	assert.Empty(t, amb.docs.lifecycleStatuses)
}

func TestConsultarNuncaRegrideAutorizado(t *testing.T) {
	// AUTHORIZED é definitivo: uma consulta que alegue cancelamento sem o
	// documento ter passado pelo fluxo local não regride nada além do que a
	// tabela de transições permite (AUTHORIZED → CANCELED é válida; mas
	// CANCELED → qualquer coisa nunca).
	amb := novoAmbiente()
	doc, itens := documentoAutorizado()
	doc.Status = entity.StatusCanceled
	amb.docs.doc, amb.docs.itens = doc, itens
	amb.transport.resposta = respostaOK(retornoConsultaAutorizada)

	out, err := amb.svc.Consultar(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusCanceled), out.Status)
	assert.Empty(t, amb.docs.lifecycleStatuses, "CANCELED nunca regride para AUTHORIZED")
}

func TestConsultarSemChave(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoTeste(entity.StatusDraft)

	_, err := amb.svc.Consultar(context.Background(), "doc-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, amb.transport.calls)
}
