// Package nfe contém catálogos e regras puras da NF-e (modelo 55), alinhados
// ao Manual de Orientação do Contribuinte e ao layout 4.00.
package nfe

// =============================================================================
// Ambiente de emissão (tpAmb)
// =============================================================================

const (
	AmbienteProducao    = "1" // produção: documentos com validade jurídica
	AmbienteHomologacao = "2" // homologação: ambiente de testes da SEFAZ
)

// =============================================================================
// Identificação do documento
// =============================================================================

const (
	ModeloNFe  = "55" // NF-e
	ModeloNFCe = "65" // NFC-e (consumidor final)

	TpEmisNormal       = "1" // emissão normal
	TpEmisContingencia = "9" // contingência off-line (não usada neste núcleo)

	VersaoLayout = "4.00"
	VersaoEvento = "1.00"
)

// CRT — Código de Regime Tributário do emitente (determina os campos de
// imposto por item: CSOSN no Simples Nacional, CST no regime normal).
const (
	CRTSimplesNacional = "1"
	CRTSimplesExcesso  = "2"
	CRTRegimeNormal    = "3"
)

// Tipo de evento (tpEvento) para o registro de eventos pós-autorização.
const (
	EventoCancelamento = "110111"
)

// =============================================================================
// Códigos de status (cStat) retornados pela SEFAZ
// =============================================================================

const (
	// CStatAutorizado: "Autorizado o uso da NF-e".
	CStatAutorizado = "100"
	// CStatCancelado: "Cancelamento de NF-e homologado".
	CStatCancelado = "101"
	// CStatLoteRecebido: lote recebido com sucesso, protocolo ainda pendente.
	CStatLoteRecebido = "103"
	// CStatLoteProcessado: lote processado (protNFe presente no retorno).
	CStatLoteProcessado = "104"
	// CStatLoteEmProcessamento: lote em processamento, consultar depois.
	CStatLoteEmProcessamento = "105"
	// CStatDenegado: "Uso Denegado" (emitente irregular no cadastro).
	CStatDenegado = "110"
	// CStatEventoRegistrado: evento registrado e vinculado à NF-e.
	CStatEventoRegistrado = "135"
	// CStatCancelamentoForaPrazo: cancelamento homologado fora de prazo.
	CStatCancelamentoForaPrazo = "155"
	// CStatNaoConsta: NF-e não consta na base de dados da SEFAZ.
	CStatNaoConsta = "217"
)

// denegacoes: além do 110, a SEFAZ usa os códigos 301/302/303 para denegação
// por irregularidade do emitente, destinatário ou ambos.
var denegacoes = map[string]bool{
	CStatDenegado: true,
	"301":         true,
	"302":         true,
	"303":         true,
}

// IsAutorizado informa se o cStat de protocolo indica autorização de uso.
func IsAutorizado(cStat string) bool { return cStat == CStatAutorizado }

// IsDenegado informa se o cStat indica uso denegado (documento fica DENIED e
// o protocolo de denegação é persistido).
func IsDenegado(cStat string) bool { return denegacoes[cStat] }

// IsCancelamentoHomologado informa se o cStat de evento indica cancelamento
// aceito (135 registrado, 155 fora de prazo).
func IsCancelamentoHomologado(cStat string) bool {
	return cStat == CStatEventoRegistrado || cStat == CStatCancelamentoForaPrazo
}

// IsLotePendente informa se o lote foi aceito mas ainda não tem protocolo
// (fluxo assíncrono: o documento fica TRANSMITTED até a consulta resolver).
func IsLotePendente(cStat string) bool {
	return cStat == CStatLoteRecebido || cStat == CStatLoteEmProcessamento
}

// =============================================================================
// Códigos IBGE das UFs (cUF da chave de acesso)
// =============================================================================

// CodigosUF mapeia a sigla da UF para o código IBGE de 2 dígitos.
var CodigosUF = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27", "SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// OrgaoUF devolve o código IBGE (cOrgao) da UF para envelopes de evento.
// Segunda resposta false quando a sigla é desconhecida.
func OrgaoUF(sigla string) (string, bool) {
	c, ok := CodigosUF[sigla]
	return c, ok
}
