package entity

import "time"

// Company é o perfil da empresa emitente. O ambiente de emissão e a
// referência do certificado digital moram aqui: cada operação de assinatura e
// transporte trabalha com o certificado desta empresa, nunca com um
// certificado cacheado de outra.
type Company struct {
	ID           string
	RazaoSocial  string
	NomeFantasia string
	CNPJ         string
	IE           string // inscrição estadual

	// Endereço fiscal do emitente.
	Logradouro      string
	NumeroEndereco  string
	Bairro          string
	Municipio       string
	CodigoMunicipio string // código IBGE (7 dígitos)
	UF              string // sigla (SP, RJ, ...)
	CEP             string

	// CRT: regime tributário ("1" Simples Nacional, "3" regime normal).
	// Decide entre CSOSN e CST nos campos de imposto por item.
	CRT string

	// Ambiente de emissão: "1" produção, "2" homologação. A seleção de
	// endpoint é feita exclusivamente por este campo.
	Ambiente string

	// Referência do bundle PKCS#12 e senha: o provedor de certificado resolve
	// a referência para os bytes do bundle sob demanda.
	CertRef   string
	CertSenha string

	CreatedAt time.Time
	UpdatedAt time.Time
}
