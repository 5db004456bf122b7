// Package fiscal contém as validações de domínio da emissão da NF-e — regras
// puras, sem I/O, executadas antes de qualquer custo de assinatura ou rede.
package fiscal

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/emitefacil/emissor-api/internal/domain"
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// ErrDocumentoInvalido agrupa erros de validação do documento.
var ErrDocumentoInvalido = errors.New("documento inválido para emissão")

// ErrJustificativaInvalida: a justificativa de cancelamento deve ter entre 15
// e 255 caracteres (regra de layout da SEFAZ, verificada antes da rede).
var ErrJustificativaInvalida = errors.New("justificativa de cancelamento deve ter entre 15 e 255 caracteres")

const (
	justificativaMin = 15
	justificativaMax = 255
)

// ValidateJustificativa valida o comprimento da justificativa de
// cancelamento. Conta caracteres (runes), não bytes.
func ValidateJustificativa(justificativa string) error {
	n := utf8.RuneCountInString(justificativa)
	if n < justificativaMin || n > justificativaMax {
		return fmt.Errorf("%w: recebeu %d caracteres", ErrJustificativaInvalida, n)
	}
	return nil
}

// ValidateDocumento valida o documento e seus itens antes da montagem do XML.
// Confere identificadores obrigatórios, documentos fiscais de emitente e
// destinatário, e a coerência dos totais com a soma dos itens.
func ValidateDocumento(doc *entity.FiscalDocument, itens []*entity.DocumentItem, emitente *entity.Company) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrDocumentoInvalido)
	}
	var errs []error

	if emitente == nil {
		errs = append(errs, fmt.Errorf("%w: emitente obrigatório", ErrDocumentoInvalido))
	} else {
		if err := nfe.ValidateCNPJ(emitente.CNPJ); err != nil {
			errs = append(errs, fmt.Errorf("emitente: %w", err))
		}
		if _, ok := nfe.CodigosUF[emitente.UF]; !ok {
			errs = append(errs, fmt.Errorf("%w: UF do emitente desconhecida %q", ErrDocumentoInvalido, emitente.UF))
		}
	}

	if doc.Numero <= 0 {
		errs = append(errs, fmt.Errorf("%w: número do documento deve ser positivo", ErrDocumentoInvalido))
	}
	if doc.Serie < 0 || doc.Serie > 999 {
		errs = append(errs, fmt.Errorf("%w: série fora do intervalo 0-999", ErrDocumentoInvalido))
	}

	if err := validarDestinatario(doc.Destinatario); err != nil {
		errs = append(errs, err)
	}

	if len(itens) == 0 {
		errs = append(errs, fmt.Errorf("%w: o documento deve ter ao menos um item", ErrDocumentoInvalido))
	} else {
		var prod, serv decimal.Decimal
		for _, it := range itens {
			esperado := it.Quantidade.Mul(it.ValorUnitario).Round(2)
			if !it.ValorTotal.Equal(esperado) {
				errs = append(errs, fmt.Errorf("item %d: valor total (%s) não confere com quantidade × unitário (%s)",
					it.NumeroItem, it.ValorTotal.String(), esperado.String()))
			}
			if it.Servico {
				serv = serv.Add(it.ValorTotal)
			} else {
				prod = prod.Add(it.ValorTotal)
			}
		}
		if !doc.VProdutos.Equal(prod.Round(2)) {
			errs = append(errs, fmt.Errorf("total de mercadorias (%s) não confere com a soma dos itens (%s)",
				doc.VProdutos.String(), prod.Round(2).String()))
		}
		if !doc.VServicos.Equal(serv.Round(2)) {
			errs = append(errs, fmt.Errorf("total de serviços (%s) não confere com a soma dos itens (%s)",
				doc.VServicos.String(), serv.Round(2).String()))
		}
		if !doc.VTotal.Equal(doc.VProdutos.Add(doc.VServicos)) {
			errs = append(errs, fmt.Errorf("valor total (%s) não confere com mercadorias + serviços (%s)",
				doc.VTotal.String(), doc.VProdutos.Add(doc.VServicos).String()))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrDocumentoInvalido}, errs...)...)
	}
	return nil
}

// ValidateCancelamento confere as pré-condições do cancelamento: documento
// AUTHORIZED com protocolo de autorização e justificativa no intervalo legal.
// Qualquer falha aqui impede a chamada de rede.
func ValidateCancelamento(doc *entity.FiscalDocument, justificativa string) error {
	if doc == nil {
		return fmt.Errorf("%w: documento nulo", ErrDocumentoInvalido)
	}
	if err := ValidateJustificativa(justificativa); err != nil {
		return err
	}
	if doc.Status != entity.StatusAuthorized {
		return fmt.Errorf("cancelamento exige documento AUTHORIZED, estado atual %s: %w",
			doc.Status, domain.ErrInvalidState)
	}
	if doc.Protocolo == "" {
		return fmt.Errorf("cancelamento exige protocolo de autorização: %w", domain.ErrInvalidState)
	}
	return nil
}

func validarDestinatario(d entity.Destinatario) error {
	if d.Nome == "" {
		return fmt.Errorf("%w: nome do destinatário obrigatório", ErrDocumentoInvalido)
	}
	digits := nfe.OnlyDigits(d.CPFCNPJ)
	switch len(digits) {
	case 14:
		if err := nfe.ValidateCNPJ(digits); err != nil {
			return fmt.Errorf("destinatário: %w", err)
		}
	case 11:
		if err := nfe.ValidateCPF(digits); err != nil {
			return fmt.Errorf("destinatário: %w", err)
		}
	default:
		return fmt.Errorf("%w: documento do destinatário deve ser CPF (11) ou CNPJ (14), recebeu %d dígitos",
			ErrDocumentoInvalido, len(digits))
	}
	return nil
}
