// Package sefaz implementa a geração, assinatura e transporte do XML da NF-e
// (modelo 55, layout 4.00) contra os webservices da SEFAZ.
package sefaz

import (
	"github.com/emitefacil/emissor-api/internal/domain/entity"
)

// BuildContext reúne tudo que o builder precisa para montar o XML da NF-e.
// O destinatário já vem como snapshot dentro do documento; emitente e itens
// chegam separados porque moram em tabelas próprias.
type BuildContext struct {
	Documento *entity.FiscalDocument
	Empresa   *entity.Company
	Itens     []*entity.DocumentItem
}
