package entity

// Destinatario é o snapshot do destinatário capturado na montagem do
// documento. Não é referência viva: editar o cadastro do cliente depois não
// altera documentos já montados.
type Destinatario struct {
	Nome    string
	CPFCNPJ string // 11 dígitos = CPF, 14 = CNPJ
	IE      string // vazio para não contribuinte

	Logradouro      string
	NumeroEndereco  string
	Bairro          string
	Municipio       string
	CodigoMunicipio string
	UF              string
	CEP             string
}

// PessoaJuridica informa se o documento do destinatário é um CNPJ.
func (d Destinatario) PessoaJuridica() bool {
	n := 0
	for i := 0; i < len(d.CPFCNPJ); i++ {
		if d.CPFCNPJ[i] >= '0' && d.CPFCNPJ[i] <= '9' {
			n++
		}
	}
	return n == 14
}
