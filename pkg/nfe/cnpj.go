package nfe

import "fmt"

// Pesos dos dois dígitos verificadores do CNPJ (módulo 11, Receita Federal).
var (
	cnpjWeightsFirst  = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeightsSecond = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ valida os dois dígitos verificadores do CNPJ. Aceita o número
// com ou sem máscara ("11.222.333/0001-81" ou "11222333000181").
func ValidateCNPJ(doc string) error {
	digits := OnlyDigits(doc)
	if len(digits) != 14 {
		return fmt.Errorf("nfe: CNPJ deve ter 14 dígitos, recebeu %d", len(digits))
	}
	if allSame(digits) {
		return fmt.Errorf("nfe: CNPJ com todos os dígitos iguais é inválido")
	}
	d1 := cnpjCheckDigit(digits[:12], cnpjWeightsFirst[:])
	if digits[12] != d1 {
		return fmt.Errorf("nfe: primeiro dígito verificador do CNPJ inválido: esperado %c, recebeu %c", d1, digits[12])
	}
	d2 := cnpjCheckDigit(digits[:13], cnpjWeightsSecond[:])
	if digits[13] != d2 {
		return fmt.Errorf("nfe: segundo dígito verificador do CNPJ inválido: esperado %c, recebeu %c", d2, digits[13])
	}
	return nil
}

// ValidateCPF valida os dois dígitos verificadores do CPF do destinatário
// pessoa física.
func ValidateCPF(doc string) error {
	digits := OnlyDigits(doc)
	if len(digits) != 11 {
		return fmt.Errorf("nfe: CPF deve ter 11 dígitos, recebeu %d", len(digits))
	}
	if allSame(digits) {
		return fmt.Errorf("nfe: CPF com todos os dígitos iguais é inválido")
	}
	d1 := cpfCheckDigit(digits[:9], 10)
	if digits[9] != d1 {
		return fmt.Errorf("nfe: primeiro dígito verificador do CPF inválido: esperado %c, recebeu %c", d1, digits[9])
	}
	d2 := cpfCheckDigit(digits[:10], 11)
	if digits[10] != d2 {
		return fmt.Errorf("nfe: segundo dígito verificador do CPF inválido: esperado %c, recebeu %c", d2, digits[10])
	}
	return nil
}

func cnpjCheckDigit(base string, weights []int) byte {
	soma := 0
	for i := range base {
		soma += int(base[i]-'0') * weights[i]
	}
	resto := soma % 11
	if resto < 2 {
		return '0'
	}
	return byte('0' + (11 - resto))
}

func cpfCheckDigit(base string, pesoInicial int) byte {
	soma := 0
	peso := pesoInicial
	for i := range base {
		soma += int(base[i]-'0') * peso
		peso--
	}
	resto := (soma * 10) % 11
	if resto == 10 {
		resto = 0
	}
	return byte('0' + resto)
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// OnlyDigits remove tudo que não for dígito 0-9 (para CNPJ/CPF com máscara).
func OnlyDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
