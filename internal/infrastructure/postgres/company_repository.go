package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/domain/repository"
)

var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementa CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository constrói o adaptador. Aceita pool ou tx (Querier).
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByID carrega o perfil da empresa emitente.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	const query = `
		SELECT id, razao_social, COALESCE(nome_fantasia, ''), cnpj, COALESCE(ie, ''),
		       COALESCE(logradouro, ''), COALESCE(numero, ''), COALESCE(bairro, ''),
		       COALESCE(municipio, ''), COALESCE(cod_municipio, ''), COALESCE(uf, ''), COALESCE(cep, ''),
		       crt, ambiente, COALESCE(cert_ref, ''), COALESCE(cert_senha, ''),
		       created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.RazaoSocial, &c.NomeFantasia, &c.CNPJ, &c.IE,
		&c.Logradouro, &c.NumeroEndereco, &c.Bairro,
		&c.Municipio, &c.CodigoMunicipio, &c.UF, &c.CEP,
		&c.CRT, &c.Ambiente, &c.CertRef, &c.CertSenha,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("empresa %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}
