// Package nfe: cálculo da chave de acesso da NF-e (44 dígitos) conforme o
// layout 4.00. A chave é o identificador legal único do documento; um erro de
// um dígito invalida a nota, por isso toda entrada com largura errada é
// rejeitada em vez de truncada ou completada com zeros.
//
// Composição (43 dígitos de dados + 1 dígito verificador):
//
//	cUF(2) + AAMM(4) + CNPJ(14) + mod(2) + serie(3) + nNF(9) + tpEmis(1) + cNF(8) + cDV(1)

package nfe

import (
	"fmt"
	"strings"
)

// ChaveParams contém os campos da chave de acesso, já formatados na largura
// exata exigida pelo layout. O chamador é responsável por zero-preencher
// série, número e código numérico antes de montar os parâmetros.
type ChaveParams struct {
	CodigoUF string // código IBGE da UF do emitente (2 dígitos, ex: "35" = SP)
	AAMM     string // ano e mês de emissão (4 dígitos, AAMM)
	CNPJ     string // CNPJ do emitente (14 dígitos, somente números)
	Modelo   string // modelo do documento fiscal (2 dígitos, "55" = NF-e)
	Serie    string // série (3 dígitos)
	Numero   string // número da nota (9 dígitos)
	TpEmis   string // tipo de emissão (1 dígito, "1" = normal)
	CNF      string // código numérico aleatório/sequencial (8 dígitos)
}

// ChaveCalculator calcula a chave de acesso. Função pura, sem I/O.
type ChaveCalculator struct{}

// NewChaveCalculator cria o calculador.
func NewChaveCalculator() *ChaveCalculator {
	return &ChaveCalculator{}
}

// Calculate monta os 43 dígitos de dados, calcula o DV módulo 11 e devolve a
// chave completa de 44 dígitos. Retorna erro para qualquer campo fora da
// largura exata ou com caractere não numérico.
func (c *ChaveCalculator) Calculate(p *ChaveParams) (string, error) {
	if p == nil {
		return "", fmt.Errorf("nfe: ChaveParams é obrigatório")
	}
	campos := []struct {
		nome    string
		valor   string
		largura int
	}{
		{"cUF", p.CodigoUF, 2},
		{"AAMM", p.AAMM, 4},
		{"CNPJ", p.CNPJ, 14},
		{"mod", p.Modelo, 2},
		{"serie", p.Serie, 3},
		{"nNF", p.Numero, 9},
		{"tpEmis", p.TpEmis, 1},
		{"cNF", p.CNF, 8},
	}

	var sb strings.Builder
	for _, campo := range campos {
		if len(campo.valor) != campo.largura {
			return "", fmt.Errorf("nfe: campo %s deve ter %d dígitos, recebeu %d (%q)",
				campo.nome, campo.largura, len(campo.valor), campo.valor)
		}
		if !isNumeric(campo.valor) {
			return "", fmt.Errorf("nfe: campo %s deve conter apenas dígitos (%q)", campo.nome, campo.valor)
		}
		sb.WriteString(campo.valor)
	}

	dados := sb.String() // 43 dígitos
	dv, err := CalculateDV(dados)
	if err != nil {
		return "", err
	}
	return dados + string(dv), nil
}

// CalculateDV calcula o dígito verificador módulo 11 sobre os 43 dígitos de
// dados da chave. Os pesos 2..9 se repetem ciclicamente a partir do dígito
// mais à direita. Resto 0 ou 1 produz DV 0.
func CalculateDV(dados43 string) (byte, error) {
	if len(dados43) != 43 {
		return 0, fmt.Errorf("nfe: DV exige 43 dígitos de dados, recebeu %d", len(dados43))
	}
	if !isNumeric(dados43) {
		return 0, fmt.Errorf("nfe: dados da chave devem conter apenas dígitos")
	}
	peso := 2
	soma := 0
	for i := len(dados43) - 1; i >= 0; i-- {
		soma += int(dados43[i]-'0') * peso
		peso++
		if peso > 9 {
			peso = 2
		}
	}
	resto := soma % 11
	if resto < 2 {
		return '0', nil
	}
	return byte('0' + (11 - resto)), nil
}

// ValidateChave verifica que a chave tem 44 dígitos numéricos e que o dígito
// verificador confere com os 43 dígitos de dados.
func ValidateChave(chave string) error {
	if len(chave) != 44 {
		return fmt.Errorf("nfe: chave de acesso deve ter 44 dígitos, recebeu %d", len(chave))
	}
	if !isNumeric(chave) {
		return fmt.Errorf("nfe: chave de acesso deve conter apenas dígitos")
	}
	dv, err := CalculateDV(chave[:43])
	if err != nil {
		return err
	}
	if chave[43] != dv {
		return fmt.Errorf("nfe: dígito verificador inválido: esperado %c, recebeu %c", dv, chave[43])
	}
	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
