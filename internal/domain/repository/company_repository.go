package repository

import (
	"context"

	"github.com/emitefacil/emissor-api/internal/domain/entity"
)

// CompanyRepository é a porta de leitura do perfil da empresa emitente.
// O cadastro em si (CRUD) é responsabilidade da aplicação ao redor; o núcleo
// de emissão só consome.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}
