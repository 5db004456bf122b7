package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementa DocumentRepository sobre PostgreSQL. Guarda o pool
// (e não um Querier) porque Create abre a própria transação para cabeçalho e
// itens saírem atômicos.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constrói o adaptador.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `
	id, company_id, numero, serie, modelo, COALESCE(chave, ''), ambiente, emissao, natureza,
	dest_nome, dest_cpf_cnpj, COALESCE(dest_ie, ''),
	COALESCE(dest_logradouro, ''), COALESCE(dest_numero, ''), COALESCE(dest_bairro, ''),
	COALESCE(dest_municipio, ''), COALESCE(dest_cod_municipio, ''), COALESCE(dest_uf, ''), COALESCE(dest_cep, ''),
	v_produtos, v_servicos, v_total, status,
	COALESCE(xml_assinado, ''), COALESCE(xml_autorizado, ''),
	COALESCE(protocolo, ''), COALESCE(protocolo_cancelamento, ''), COALESCE(recibo, ''),
	COALESCE(justificativa, ''), autorizado_em, created_at, updated_at`

// Create persiste o rascunho com seus itens em uma transação única.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument, itens []*entity.DocumentItem) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertDoc = `
		INSERT INTO fiscal_documents (
			id, company_id, numero, serie, modelo, chave, ambiente, emissao, natureza,
			dest_nome, dest_cpf_cnpj, dest_ie,
			dest_logradouro, dest_numero, dest_bairro, dest_municipio, dest_cod_municipio, dest_uf, dest_cep,
			v_produtos, v_servicos, v_total, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`
	d := doc.Destinatario
	_, err = tx.Exec(ctx, insertDoc,
		doc.ID, doc.CompanyID, doc.Numero, doc.Serie, doc.Modelo, nullIfEmpty(doc.Chave),
		doc.Ambiente, doc.Emissao, doc.Natureza,
		d.Nome, d.CPFCNPJ, nullIfEmpty(d.IE),
		nullIfEmpty(d.Logradouro), nullIfEmpty(d.NumeroEndereco), nullIfEmpty(d.Bairro),
		nullIfEmpty(d.Municipio), nullIfEmpty(d.CodigoMunicipio), nullIfEmpty(d.UF), nullIfEmpty(d.CEP),
		doc.VProdutos, doc.VServicos, doc.VTotal, doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("documento %d/%d já existe para a empresa: %w", doc.Serie, doc.Numero, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert fiscal_document: %w", err)
	}

	const insertItem = `
		INSERT INTO fiscal_document_items (
			id, document_id, numero_item, descricao, codigo, ncm, cfop, unidade, servico,
			quantidade, valor_unitario, valor_total, cst, base_calculo, aliquota, valor_imposto
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`
	for _, it := range itens {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.DocumentID = doc.ID
		_, err = tx.Exec(ctx, insertItem,
			it.ID, it.DocumentID, it.NumeroItem, it.Descricao, it.Codigo, it.NCM, it.CFOP,
			it.Unidade, it.Servico, it.Quantidade, it.ValorUnitario, it.ValorTotal,
			nullIfEmpty(it.CST), it.BaseCalculo, it.Aliquota, it.ValorImposto,
		)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", it.NumeroItem, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByID carrega o documento completo.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM fiscal_documents WHERE id = $1`
	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get fiscal_document: %w", err)
	}
	return doc, nil
}

// GetItens carrega os itens na ordem do documento.
func (r *DocumentRepo) GetItens(ctx context.Context, documentID string) ([]*entity.DocumentItem, error) {
	const query = `
		SELECT id, document_id, numero_item, descricao, codigo, ncm, cfop, unidade, servico,
		       quantidade, valor_unitario, valor_total, COALESCE(cst, ''), base_calculo, aliquota, valor_imposto
		FROM fiscal_document_items WHERE document_id = $1 ORDER BY numero_item`
	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list itens: %w", err)
	}
	defer rows.Close()

	var itens []*entity.DocumentItem
	for rows.Next() {
		var it entity.DocumentItem
		if err := rows.Scan(
			&it.ID, &it.DocumentID, &it.NumeroItem, &it.Descricao, &it.Codigo, &it.NCM, &it.CFOP,
			&it.Unidade, &it.Servico, &it.Quantidade, &it.ValorUnitario, &it.ValorTotal,
			&it.CST, &it.BaseCalculo, &it.Aliquota, &it.ValorImposto,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		itens = append(itens, &it)
	}
	return itens, rows.Err()
}

// UpdateLifecycle grava o avanço de ciclo de vida com guarda otimista: o
// WHERE só aceita a linha se o status atual ainda for um predecessor válido
// do status novo. Zero linhas afetadas com o documento existente significa
// que outra invocação avançou primeiro (domain.ErrConflict).
func (r *DocumentRepo) UpdateLifecycle(ctx context.Context, doc *entity.FiscalDocument) error {
	preds := predecessores(doc.Status)
	if len(preds) == 0 {
		return fmt.Errorf("status %s não tem transição de entrada válida: %w", doc.Status, domain.ErrInvalidState)
	}
	// Reaplicar o mesmo status é permitido (idempotência: anexar recibo ou
	// protocolo a um TRANSMITTED já gravado); regressão nunca.
	preds = append(preds, string(doc.Status))

	const query = `
		UPDATE fiscal_documents
		SET status                 = $2,
		    xml_autorizado         = COALESCE($3, xml_autorizado),
		    protocolo              = COALESCE($4, protocolo),
		    protocolo_cancelamento = COALESCE($5, protocolo_cancelamento),
		    recibo                 = COALESCE($6, recibo),
		    justificativa          = COALESCE($7, justificativa),
		    autorizado_em          = COALESCE($8, autorizado_em),
		    updated_at             = $9
		WHERE id = $1 AND status = ANY($10)`
	tag, err := r.pool.Exec(ctx, query,
		doc.ID, doc.Status,
		nullIfEmpty(doc.XMLAutorizado),
		nullIfEmpty(doc.Protocolo),
		nullIfEmpty(doc.ProtocoloCancelamento),
		nullIfEmpty(doc.Recibo),
		nullIfEmpty(doc.Justificativa),
		doc.AutorizadoEm,
		time.Now().UTC(),
		preds,
	)
	if err != nil {
		return fmt.Errorf("update lifecycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguir inexistente de regressão recusada.
		var atual string
		err := r.pool.QueryRow(ctx, `SELECT status FROM fiscal_documents WHERE id = $1`, doc.ID).Scan(&atual)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("documento %s: %w", doc.ID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("verificar status atual: %w", err)
		}
		return fmt.Errorf("documento %s já está em %s, transição para %s recusada: %w",
			doc.ID, atual, doc.Status, domain.ErrConflict)
	}
	return nil
}

// UpdateArtefatoAssinado grava o XML assinado e a chave sem tocar no status:
// o artefato sobrevive a falhas de rede posteriores e é reaproveitado na
// retransmissão.
func (r *DocumentRepo) UpdateArtefatoAssinado(ctx context.Context, doc *entity.FiscalDocument) error {
	const query = `
		UPDATE fiscal_documents
		SET chave = $2, xml_assinado = $3, updated_at = $4
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, doc.ID, doc.Chave, doc.XMLAssinado, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update artefato assinado: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documento %s: %w", doc.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateJustificativa grava a justificativa sem tocar no status.
func (r *DocumentRepo) UpdateJustificativa(ctx context.Context, id, justificativa string) error {
	const query = `
		UPDATE fiscal_documents SET justificativa = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, justificativa, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update justificativa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetStatus devolve a projeção leve para polling de status.
func (r *DocumentRepo) GetStatus(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	const query = `
		SELECT id, company_id, status, COALESCE(chave, ''),
		       COALESCE(protocolo, ''), COALESCE(protocolo_cancelamento, ''), COALESCE(recibo, ''), autorizado_em
		FROM fiscal_documents WHERE id = $1`
	var doc entity.FiscalDocument
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.CompanyID, &doc.Status, &doc.Chave,
		&doc.Protocolo, &doc.ProtocoloCancelamento, &doc.Recibo, &doc.AutorizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("documento %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &doc, nil
}

// predecessores lista os status de origem que podem avançar para next.
func predecessores(next entity.Status) []string {
	todos := []entity.Status{
		entity.StatusDraft, entity.StatusTransmitted, entity.StatusAuthorized,
		entity.StatusRejected, entity.StatusDenied, entity.StatusCanceled,
	}
	var out []string
	for _, s := range todos {
		if s.PodeAvancarPara(next) {
			out = append(out, string(s))
		}
	}
	return out
}

func scanDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var doc entity.FiscalDocument
	d := &doc.Destinatario
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.Numero, &doc.Serie, &doc.Modelo, &doc.Chave,
		&doc.Ambiente, &doc.Emissao, &doc.Natureza,
		&d.Nome, &d.CPFCNPJ, &d.IE,
		&d.Logradouro, &d.NumeroEndereco, &d.Bairro, &d.Municipio, &d.CodigoMunicipio, &d.UF, &d.CEP,
		&doc.VProdutos, &doc.VServicos, &doc.VTotal, &doc.Status,
		&doc.XMLAssinado, &doc.XMLAutorizado,
		&doc.Protocolo, &doc.ProtocoloCancelamento, &doc.Recibo,
		&doc.Justificativa, &doc.AutorizadoEm, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
