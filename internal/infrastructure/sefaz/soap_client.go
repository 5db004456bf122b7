package sefaz

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/pkg/config"
	"github.com/emitefacil/emissor-api/pkg/logger"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// Operacao identifica o webservice de destino. Cada operação tem endpoint e
// namespace WSDL próprios, resolvidos pelo par (operação, tpAmb).
type Operacao string

const (
	OperacaoAutorizacao Operacao = "autorizacao"
	OperacaoConsulta    Operacao = "consulta"
	OperacaoEvento      Operacao = "evento"
)

// endpoints por operação e ambiente (webservices da SEFAZ-SP, versão 4).
var endpoints = map[Operacao]map[string]string{
	OperacaoAutorizacao: {
		nfe.AmbienteProducao:    "https://nfe.fazenda.sp.gov.br/ws/nfeautorizacao4.asmx",
		nfe.AmbienteHomologacao: "https://homologacao.nfe.fazenda.sp.gov.br/ws/nfeautorizacao4.asmx",
	},
	OperacaoConsulta: {
		nfe.AmbienteProducao:    "https://nfe.fazenda.sp.gov.br/ws/nfeconsultaprotocolo4.asmx",
		nfe.AmbienteHomologacao: "https://homologacao.nfe.fazenda.sp.gov.br/ws/nfeconsultaprotocolo4.asmx",
	},
	OperacaoEvento: {
		nfe.AmbienteProducao:    "https://nfe.fazenda.sp.gov.br/ws/nferecepcaoevento4.asmx",
		nfe.AmbienteHomologacao: "https://homologacao.nfe.fazenda.sp.gov.br/ws/nferecepcaoevento4.asmx",
	},
}

// wsdlNamespaces por operação, usados no nfeDadosMsg do envelope.
var wsdlNamespaces = map[Operacao]string{
	OperacaoAutorizacao: NsWsdlAutorizacao,
	OperacaoConsulta:    NsWsdlConsulta,
	OperacaoEvento:      NsWsdlEvento,
}

// Resposta é o retorno bruto do transporte. Corpo é o body HTTP completo; a
// interpretação fica no response interpreter, nunca aqui.
type Resposta struct {
	HTTPStatus int
	Corpo      []byte
}

// Transporter é o porto de saída para o webservice. A implementação concreta
// usa SOAP 1.2 com mTLS; testes injetam um mock.
type Transporter interface {
	// Enviar embrulha payload no envelope SOAP da operação e o entrega ao
	// endpoint do par (operacao, ambiente) usando o certificado do emitente.
	Enviar(ctx context.Context, operacao Operacao, ambiente string, payload []byte, cert tls.Certificate) (*Resposta, error)
}

// SOAPClient implementa Transporter. O certificado do cliente chega por
// chamada e nunca é retido: emissores diferentes usam certificados diferentes
// dentro do mesmo processo.
type SOAPClient struct {
	cfg      config.SefazConfig
	log      *logger.Logger
	envelope *EnvelopeBuilder
	caPool   *x509.CertPool

	// baseURL substitui a tabela de endpoints quando definido (testes).
	baseURL string
}

// NewSOAPClient constrói o cliente. Se cfg.CABundlePath estiver definido, o
// PEM é carregado uma vez e usado como pool exclusivo de CAs (pinning).
func NewSOAPClient(cfg config.SefazConfig, log *logger.Logger) (*SOAPClient, error) {
	c := &SOAPClient{
		cfg:      cfg,
		log:      log,
		envelope: NewEnvelopeBuilder(),
	}
	if cfg.CABundlePath != "" {
		pem, err := os.ReadFile(cfg.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("sefaz: ler CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("sefaz: CA bundle %s sem certificados PEM válidos", cfg.CABundlePath)
		}
		c.caPool = pool
	}
	if cfg.InsecureSkipVerify {
		log.Warn().Msg("validação TLS do servidor SEFAZ DESLIGADA (SEFAZ_INSECURE_SKIP_VERIFY)")
	}
	return c, nil
}

// Enviar entrega o payload. Erro de transporte ou HTTP != 200 significa
// desfecho desconhecido: a SEFAZ pode ter processado a mensagem mesmo sem
// resposta utilizável, então o chamador não deve registrar rejeição.
func (c *SOAPClient) Enviar(ctx context.Context, operacao Operacao, ambiente string, payload []byte, cert tls.Certificate) (*Resposta, error) {
	url, err := c.resolverEndpoint(operacao, ambiente)
	if err != nil {
		return nil, err
	}
	ns, ok := wsdlNamespaces[operacao]
	if !ok {
		return nil, fmt.Errorf("sefaz: operação desconhecida %q", operacao)
	}

	envelope := c.envelope.WrapSOAP(ns, payload)

	// tls.Config por chamada: o certificado do emitente não pode vazar para
	// chamadas de outras empresas.
	httpClient := &http.Client{
		Timeout: c.cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates:       []tls.Certificate{cert},
				RootCAs:            c.caPool,
				InsecureSkipVerify: c.cfg.InsecureSkipVerify,
				MinVersion:         tls.VersionTLS12,
			},
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("sefaz: criar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")

	c.log.Debug().
		Str("operacao", string(operacao)).
		Str("ambiente", ambiente).
		Str("endpoint", url).
		Int("payload_bytes", len(payload)).
		Msg("enviando requisição SOAP à SEFAZ")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sefaz: chamada ao webservice falhou (%s): %v: %w",
			operacao, err, domain.ErrUnknownOutcome)
	}
	defer resp.Body.Close()

	corpo, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("sefaz: ler resposta: %v: %w", err, domain.ErrUnknownOutcome)
	}

	if resp.StatusCode != http.StatusOK {
		return &Resposta{HTTPStatus: resp.StatusCode, Corpo: corpo},
			fmt.Errorf("sefaz: webservice respondeu HTTP %d: %w", resp.StatusCode, domain.ErrUnknownOutcome)
	}

	return &Resposta{HTTPStatus: resp.StatusCode, Corpo: corpo}, nil
}

func (c *SOAPClient) resolverEndpoint(operacao Operacao, ambiente string) (string, error) {
	if c.baseURL != "" {
		return c.baseURL, nil
	}
	porAmbiente, ok := endpoints[operacao]
	if !ok {
		return "", fmt.Errorf("sefaz: operação desconhecida %q", operacao)
	}
	url, ok := porAmbiente[ambiente]
	if !ok {
		return "", fmt.Errorf("sefaz: ambiente inválido %q (usar %q produção ou %q homologação)",
			ambiente, nfe.AmbienteProducao, nfe.AmbienteHomologacao)
	}
	return url, nil
}

var _ Transporter = (*SOAPClient)(nil)
