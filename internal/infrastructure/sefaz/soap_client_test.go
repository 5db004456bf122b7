package sefaz

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/pkg/config"
	"github.com/emitefacil/emissor-api/pkg/logger"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

func loggerTeste() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

func clienteTeste(t *testing.T, baseURL string) *SOAPClient {
	t.Helper()
	c, err := NewSOAPClient(config.SefazConfig{
		Timeout:            5 * time.Second,
		InsecureSkipVerify: true, // o servidor de teste usa certificado autoassinado
	}, loggerTeste())
	require.NoError(t, err)
	c.baseURL = baseURL
	return c
}

func TestResolverEndpointPorOperacaoEAmbiente(t *testing.T) {
	c, err := NewSOAPClient(config.SefazConfig{Timeout: time.Second}, loggerTeste())
	require.NoError(t, err)

	casos := []struct {
		op       Operacao
		ambiente string
		contem   string
	}{
		{OperacaoAutorizacao, nfe.AmbienteProducao, "nfe.fazenda.sp.gov.br/ws/nfeautorizacao4"},
		{OperacaoAutorizacao, nfe.AmbienteHomologacao, "homologacao.nfe.fazenda.sp.gov.br/ws/nfeautorizacao4"},
		{OperacaoConsulta, nfe.AmbienteProducao, "nfeconsultaprotocolo4"},
		{OperacaoEvento, nfe.AmbienteHomologacao, "homologacao.nfe.fazenda.sp.gov.br/ws/nferecepcaoevento4"},
	}
	for _, tc := range casos {
		url, err := c.resolverEndpoint(tc.op, tc.ambiente)
		require.NoError(t, err)
		assert.Contains(t, url, tc.contem)
	}

	_, err = c.resolverEndpoint(OperacaoAutorizacao, "3")
	assert.Error(t, err, "ambiente fora de 1/2 não resolve endpoint")

	_, err = c.resolverEndpoint(Operacao("distribuicao"), nfe.AmbienteProducao)
	assert.Error(t, err)
}

func TestEnviarEmbrulhaPayloadNoEnvelope(t *testing.T) {
	var recebido []byte
	var contentType string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recebido, _ = io.ReadAll(r.Body)
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"><soap:Body/></soap:Envelope>`))
	}))
	defer srv.Close()

	c := clienteTeste(t, srv.URL)
	cert := tls.Certificate{}

	resp, err := c.Enviar(context.Background(), OperacaoConsulta, nfe.AmbienteHomologacao,
		[]byte(`<consSitNFe versao="4.00"/>`), cert)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.HTTPStatus)

	body := string(recebido)
	assert.Contains(t, contentType, "application/soap+xml")
	assert.Contains(t, body, "<consSitNFe")
	assert.Contains(t, body, NsWsdlConsulta)
	assert.Equal(t, 1, strings.Count(body, "<?xml"), "um único prólogo no envelope")
}

func TestEnviarHTTPNaoOKEDesfechoDesconhecido(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	c := clienteTeste(t, srv.URL)

	resp, err := c.Enviar(context.Background(), OperacaoAutorizacao, nfe.AmbienteHomologacao,
		[]byte(`<enviNFe/>`), tls.Certificate{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownOutcome,
		"HTTP != 200 não é rejeição: é desfecho desconhecido")
	require.NotNil(t, resp, "o corpo bruto acompanha o erro para diagnóstico")
	assert.Equal(t, http.StatusBadGateway, resp.HTTPStatus)
}

func TestEnviarFalhaDeConexaoEDesfechoDesconhecido(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // endereço alocado mas já fechado

	c := clienteTeste(t, srv.URL)

	_, err := c.Enviar(context.Background(), OperacaoEvento, nfe.AmbienteHomologacao,
		[]byte(`<envEvento/>`), tls.Certificate{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownOutcome)
}

func TestNewSOAPClientCABundleInvalido(t *testing.T) {
	_, err := NewSOAPClient(config.SefazConfig{CABundlePath: "/caminho/inexistente.pem"}, loggerTeste())
	assert.Error(t, err)
}
