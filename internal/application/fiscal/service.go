// Package fiscal orquestra o ciclo de emissão da NF-e: montagem do rascunho,
// assinatura, transmissão, consulta e cancelamento. Toda decisão de status é
// da SEFAZ; aqui apenas refletimos as respostas dela no banco.
package fiscal

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"math/big"

	"github.com/emitefacil/emissor-api/internal/domain/repository"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
	"github.com/emitefacil/emissor-api/pkg/logger"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// Service reúne as dependências do fluxo de emissão. O certificado digital é
// resolvido por operação via CertificateProvider e nunca fica retido no
// serviço: empresas diferentes emitem com certificados diferentes.
type Service struct {
	docs      repository.DocumentRepository
	companies repository.CompanyRepository
	certs     repository.CertificateProvider

	builder   *sefaz.XMLBuilderService
	envelope  *sefaz.EnvelopeBuilder
	signer    nfe.Signer
	transport sefaz.Transporter
	interp    *sefaz.ResponseInterpreter
	chaves    *nfe.ChaveCalculator
	danfe     DANFEGenerator

	// decodeCert abre o bundle PKCS#12; substituível em teste.
	decodeCert func(bundle []byte, senha string) (tls.Certificate, error)

	log *logger.Logger
}

// NewService constrói o serviço com todas as dependências.
func NewService(
	docs repository.DocumentRepository,
	companies repository.CompanyRepository,
	certs repository.CertificateProvider,
	builder *sefaz.XMLBuilderService,
	envelope *sefaz.EnvelopeBuilder,
	signer nfe.Signer,
	transport sefaz.Transporter,
	interp *sefaz.ResponseInterpreter,
	danfe DANFEGenerator,
	log *logger.Logger,
) *Service {
	return &Service{
		docs:       docs,
		companies:  companies,
		certs:      certs,
		builder:    builder,
		envelope:   envelope,
		signer:     signer,
		transport:  transport,
		interp:     interp,
		chaves:     nfe.NewChaveCalculator(),
		danfe:      danfe,
		decodeCert: sefaz.DecodeBundle,
		log:        log,
	}
}

// carregarCertificado resolve e decodifica o PKCS#12 da empresa. Os bytes do
// bundle valem só para esta operação.
func (s *Service) carregarCertificado(ctx context.Context, companyID string) (tls.Certificate, error) {
	bundle, senha, err := s.certs.Bundle(ctx, companyID)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("resolver certificado da empresa: %w", err)
	}
	cert, err := s.decodeCert(bundle, senha)
	if err != nil {
		return tls.Certificate{}, err
	}
	return cert, nil
}

// codigoNumerico sorteia o cNF (8 dígitos) da chave de acesso.
func codigoNumerico() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("sortear cNF: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}
