package sefaz

import (
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLote(t *testing.T) {
	b := NewEnvelopeBuilder()
	nfeXML := []byte(`<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe` + chaveTeste + `"/></NFe>`)

	out, err := b.BuildLote("123456", nfeXML)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	assert.Equal(t, "enviNFe", root.Tag)
	assert.Equal(t, "4.00", root.SelectAttrValue("versao", ""))
	assert.Equal(t, "123456", root.FindElement("./idLote").Text())
	assert.Equal(t, "1", root.FindElement("./indSinc").Text())
	assert.NotNil(t, root.FindElement("./NFe/infNFe"))
}

func TestBuildLoteRemoveFragmentoComPrologo(t *testing.T) {
	b := NewEnvelopeBuilder()
	comPrologo := []byte(`<?xml version="1.0" encoding="UTF-8"?><NFe><infNFe/></NFe>`)

	out, err := b.BuildLote("1", comPrologo)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(out), "<?xml"), "lote não pode carregar prólogo aninhado")
}

func TestBuildEventoCancelamento(t *testing.T) {
	b := NewEnvelopeBuilder()
	emissao, _ := time.Parse(time.RFC3339, "2023-11-15T10:00:00-03:00")
	p := EventoCancelamentoParams{
		Chave:         chaveTeste,
		Protocolo:     "135230000012345",
		Justificativa: "Erro de digitação nos itens do documento",
		OrgaoUF:       "35",
		Ambiente:      "2",
		Emissao:       emissao,
	}

	out, err := b.BuildEventoCancelamento(p)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	inf := doc.FindElement("//infEvento")
	require.NotNil(t, inf)
	assert.Equal(t, "ID110111"+chaveTeste+"01", inf.SelectAttrValue("Id", ""))
	assert.Equal(t, "35", inf.FindElement("./cOrgao").Text())
	assert.Equal(t, chaveTeste, inf.FindElement("./chNFe").Text())
	assert.Equal(t, chaveTeste[6:20], inf.FindElement("./CNPJ").Text())
	assert.Equal(t, "110111", inf.FindElement("./tpEvento").Text())
	assert.Equal(t, "135230000012345", inf.FindElement("./detEvento/nProt").Text())
	assert.Equal(t, "Erro de digitação nos itens do documento", inf.FindElement("./detEvento/xJust").Text())
}

func TestBuildEventoCancelamentoEscapaJustificativa(t *testing.T) {
	b := NewEnvelopeBuilder()
	p := EventoCancelamentoParams{
		Chave:         chaveTeste,
		Protocolo:     "135230000012345",
		Justificativa: "Valor <incorreto> & duplicado no sistema",
		OrgaoUF:       "35",
		Ambiente:      "2",
		Emissao:       time.Now(),
	}

	out, err := b.BuildEventoCancelamento(p)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	assert.Equal(t, "Valor <incorreto> & duplicado no sistema",
		doc.FindElement("//xJust").Text())
}

func TestBuildEventoCancelamentoExigeProtocolo(t *testing.T) {
	b := NewEnvelopeBuilder()
	_, err := b.BuildEventoCancelamento(EventoCancelamentoParams{
		Chave:    chaveTeste,
		OrgaoUF:  "35",
		Ambiente: "2",
		Emissao:  time.Now(),
	})
	assert.Error(t, err)
}

func TestBuildConsulta(t *testing.T) {
	b := NewEnvelopeBuilder()
	out, err := b.BuildConsulta(chaveTeste, "1")
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	assert.Equal(t, "consSitNFe", root.Tag)
	assert.Equal(t, "CONSULTAR", root.FindElement("./xServ").Text())
	assert.Equal(t, chaveTeste, root.FindElement("./chNFe").Text())
	assert.Equal(t, "1", root.FindElement("./tpAmb").Text())
}

func TestWrapSOAPPrologoUnico(t *testing.T) {
	b := NewEnvelopeBuilder()
	payload := []byte(`<?xml version="1.0"?><consSitNFe/>`)

	out := b.WrapSOAP(NsWsdlConsulta, payload)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, `<?xml`), "envelope externo carrega o prólogo")
	assert.Equal(t, 1, strings.Count(s, "<?xml"), "apenas um prólogo em todo o envelope")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	body := doc.FindElement("//nfeDadosMsg")
	require.NotNil(t, body)
	assert.Equal(t, NsWsdlConsulta, body.SelectAttrValue("xmlns", ""))
	assert.NotNil(t, body.FindElement("./consSitNFe"))
}

func TestMontarProcNFe(t *testing.T) {
	b := NewEnvelopeBuilder()
	assinada := []byte(`<NFe><infNFe Id="NFe` + chaveTeste + `"/><Signature/></NFe>`)
	prot := []byte(`<protNFe versao="4.00"><infProt><cStat>100</cStat><nProt>135230000012345</nProt></infProt></protNFe>`)

	out, err := b.MontarProcNFe(assinada, prot)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	assert.Equal(t, "nfeProc", root.Tag)
	assert.NotNil(t, root.FindElement("./NFe"))
	assert.Equal(t, "100", root.FindElement("./protNFe/infProt/cStat").Text())

	_, err = b.MontarProcNFe(nil, prot)
	assert.Error(t, err)
	_, err = b.MontarProcNFe(assinada, nil)
	assert.Error(t, err)
}
