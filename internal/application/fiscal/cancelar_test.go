package fiscal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	domfiscal "github.com/emitefacil/emissor-api/internal/domain/fiscal"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
)

const retornoEventoHomologado = `<retEnvEvento xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.00">
 <cStat>128</cStat><xMotivo>Lote de evento processado</xMotivo>
 <retEvento versao="1.00"><infEvento>
  <cStat>135</cStat><xMotivo>Evento registrado e vinculado a NF-e</xMotivo>
  <nProt>135230000054321</nProt>
 </infEvento></retEvento>
</retEnvEvento>`

const retornoEventoRecusado = `<retEnvEvento xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.00">
 <cStat>128</cStat><xMotivo>Lote de evento processado</xMotivo>
 <retEvento versao="1.00"><infEvento>
  <cStat>573</cStat><xMotivo>Duplicidade de evento</xMotivo>
 </infEvento></retEvento>
</retEnvEvento>`

const justificativaValida = "Erro de digitação nos itens do documento fiscal"

func documentoAutorizado() (*entity.FiscalDocument, []*entity.DocumentItem) {
	doc, itens := documentoTeste(entity.StatusAuthorized)
	doc.Chave = "35231111222333000181550010000000421123456781"
	doc.Protocolo = "135230000012345"
	doc.XMLAssinado = `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe` + doc.Chave + `"/></NFe>`
	return doc, itens
}

func TestCancelarHomologado(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoAutorizado()
	amb.transport.resposta = respostaOK(retornoEventoHomologado)

	out, err := amb.svc.Cancelar(context.Background(), "doc-1", justificativaValida)
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusCanceled), out.Status)
	assert.Equal(t, "135230000054321", out.Protocolo)

	doc := amb.docs.doc
	assert.Equal(t, entity.StatusCanceled, doc.Status)
	assert.Equal(t, "135230000054321", doc.ProtocoloCancelamento)
	assert.Equal(t, "135230000012345", doc.Protocolo, "protocolo de autorização preservado")
	assert.Equal(t, justificativaValida, doc.Justificativa)

	// assinatura do evento referencia ID110111 + chave + sequência.
	require.Len(t, amb.signer.targetIDs, 1)
	assert.Equal(t, "ID110111"+doc.Chave+"01", amb.signer.targetIDs[0])

	require.Len(t, amb.transport.operacoes, 1)
	assert.Equal(t, sefaz.OperacaoEvento, amb.transport.operacoes[0])
	payload := string(amb.transport.payloads[0])
	assert.Contains(t, payload, "<envEvento")
	assert.False(t, strings.Contains(payload, "<?xml"))
}

func TestCancelarRecusadoPersisteJustificativa(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoAutorizado()
	amb.transport.resposta = respostaOK(retornoEventoRecusado)

	out, err := amb.svc.Cancelar(context.Background(), "doc-1", justificativaValida)
	require.NoError(t, err)

	assert.Equal(t, string(entity.StatusAuthorized), out.Status, "recusa não muda o status")
	assert.Equal(t, "573", out.CStat)

	doc := amb.docs.doc
	assert.Equal(t, entity.StatusAuthorized, doc.Status)
	assert.Empty(t, doc.ProtocoloCancelamento)
	assert.Equal(t, justificativaValida, doc.Justificativa, "justificativa persiste mesmo recusada")
	assert.Equal(t, 1, amb.docs.justificativaCalls)
}

func TestCancelarJustificativaCurtaNaoSaiPelaRede(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoAutorizado()

	_, err := amb.svc.Cancelar(context.Background(), "doc-1", "muito curta")
	require.Error(t, err)
	assert.ErrorIs(t, err, domfiscal.ErrJustificativaInvalida)
	assert.Equal(t, 0, amb.transport.calls)
	assert.Equal(t, 0, amb.docs.justificativaCalls)
	assert.Equal(t, 0, amb.certs.calls, "certificado nem chega a ser carregado")
}

func TestCancelarExigeAuthorized(t *testing.T) {
	amb := novoAmbiente()
	amb.docs.doc, amb.docs.itens = documentoTeste(entity.StatusTransmitted)

	_, err := amb.svc.Cancelar(context.Background(), "doc-1", justificativaValida)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, amb.transport.calls)
}
