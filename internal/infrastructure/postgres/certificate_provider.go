package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/repository"
)

var _ repository.CertificateProvider = (*CertificateProviderPG)(nil)

// CertificateProviderPG resolve o cert_ref da empresa para os bytes do bundle
// PKCS#12 guardados na tabela certificates. Os bytes são carregados sob
// demanda a cada operação e nunca retidos: certificados de empresas distintas
// não podem se misturar no mesmo processo.
type CertificateProviderPG struct {
	q Querier
}

// NewCertificateProvider constrói o provedor.
func NewCertificateProvider(q Querier) *CertificateProviderPG {
	return &CertificateProviderPG{q: q}
}

// Bundle devolve os bytes do PKCS#12 e a senha da empresa dada.
func (p *CertificateProviderPG) Bundle(ctx context.Context, companyID string) ([]byte, string, error) {
	const query = `
		SELECT cert.bundle, COALESCE(c.cert_senha, '')
		FROM companies c
		JOIN certificates cert ON cert.ref = c.cert_ref
		WHERE c.id = $1`
	var bundle []byte
	var senha string
	err := p.q.QueryRow(ctx, query, companyID).Scan(&bundle, &senha)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", fmt.Errorf("certificado da empresa %s: %w", companyID, domain.ErrNotFound)
		}
		return nil, "", fmt.Errorf("carregar bundle do certificado: %w", err)
	}
	if len(bundle) == 0 {
		return nil, "", fmt.Errorf("certificado da empresa %s está vazio: %w", companyID, domain.ErrNotFound)
	}
	return bundle, senha, nil
}
