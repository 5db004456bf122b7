package sefaz

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// NamespaceNFe é o namespace padrão do Portal Fiscal (layout 4.00).
const NamespaceNFe = "http://www.portalfiscal.inf.br/nfe"

// xNomeHomologacao: razão social obrigatória do destinatário em homologação;
// a SEFAZ rejeita qualquer outro valor no ambiente de testes.
const xNomeHomologacao = "NF-E EMITIDA EM AMBIENTE DE HOMOLOGACAO - SEM VALOR FISCAL"

// XMLBuilderService constrói o XML da NF-e (sem assinatura). O documento sai
// sem prólogo XML: ele vai embutido em lote e envelope SOAP, e prólogo
// aninhado é rejeitado pelo webservice.
type XMLBuilderService struct{}

// NewXMLBuilderService cria o serviço.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build gera o []byte do elemento NFe com infNFe Id="NFe<chave>". A chave já
// deve ter sido calculada e gravada no documento; cNF, tpEmis e cDV são
// extraídos dela para que ide e chave nunca divirjam.
func (s *XMLBuilderService) Build(ctx *BuildContext) ([]byte, error) {
	if ctx == nil || ctx.Documento == nil || ctx.Empresa == nil {
		return nil, fmt.Errorf("sefaz: faltam documento ou empresa no contexto")
	}
	doc := ctx.Documento
	if err := nfe.ValidateChave(doc.Chave); err != nil {
		return nil, fmt.Errorf("sefaz: chave de acesso do documento: %w", err)
	}
	if len(ctx.Itens) == 0 {
		return nil, fmt.Errorf("sefaz: documento sem itens")
	}

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: "NFe"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: NamespaceNFe}},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	infNFe := xml.StartElement{
		Name: xml.Name{Local: "infNFe"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "Id"}, Value: "NFe" + doc.Chave},
			{Name: xml.Name{Local: "versao"}, Value: nfe.VersaoLayout},
		},
	}
	if err := enc.EncodeToken(infNFe); err != nil {
		return nil, err
	}

	s.writeIde(enc, ctx)
	s.writeEmit(enc, ctx)
	s.writeDest(enc, ctx)
	for _, item := range ctx.Itens {
		s.writeDet(enc, ctx, item)
	}
	s.writeTotal(enc, ctx)

	// Frete por conta de terceiros não é modelado; modFrete=9 (sem frete).
	writeStart(enc, "transp")
	writeEl(enc, "modFrete", "9")
	writeEnd(enc, "transp")

	writeStart(enc, "pag")
	writeStart(enc, "detPag")
	writeEl(enc, "tPag", "01")
	writeEl(enc, "vPag", formatDecimal(doc.VTotal))
	writeEnd(enc, "detPag")
	writeEnd(enc, "pag")

	writeEnd(enc, "infNFe")
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeIde escreve o grupo ide. cNF (8 dígitos), tpEmis e cDV vêm da própria
// chave: posições 35–42, 34 e 43.
func (s *XMLBuilderService) writeIde(enc *xml.Encoder, ctx *BuildContext) {
	doc := ctx.Documento
	emp := ctx.Empresa

	idDest := "1"
	if ctx.Documento.Destinatario.UF != emp.UF {
		idDest = "2"
	}
	indFinal := "1"
	if doc.Destinatario.PessoaJuridica() && doc.Destinatario.IE != "" {
		indFinal = "0"
	}

	writeStart(enc, "ide")
	writeEl(enc, "cUF", doc.Chave[0:2])
	writeEl(enc, "cNF", doc.Chave[35:43])
	writeEl(enc, "natOp", doc.Natureza)
	writeEl(enc, "mod", doc.Modelo)
	writeEl(enc, "serie", strconv.Itoa(doc.Serie))
	writeEl(enc, "nNF", strconv.FormatInt(doc.Numero, 10))
	writeEl(enc, "dhEmi", doc.Emissao.Format("2006-01-02T15:04:05-07:00"))
	writeEl(enc, "tpNF", "1") // saída
	writeEl(enc, "idDest", idDest)
	writeEl(enc, "cMunFG", emp.CodigoMunicipio)
	writeEl(enc, "tpImp", "1")
	writeEl(enc, "tpEmis", doc.Chave[34:35])
	writeEl(enc, "cDV", doc.Chave[43:44])
	writeEl(enc, "tpAmb", doc.Ambiente)
	writeEl(enc, "finNFe", "1")
	writeEl(enc, "indFinal", indFinal)
	writeEl(enc, "indPres", "0")
	writeEl(enc, "procEmi", "0")
	writeEl(enc, "verProc", "emitefacil-emissor 1.0")
	writeEnd(enc, "ide")
}

func (s *XMLBuilderService) writeEmit(enc *xml.Encoder, ctx *BuildContext) {
	emp := ctx.Empresa

	writeStart(enc, "emit")
	writeEl(enc, "CNPJ", nfe.OnlyDigits(emp.CNPJ))
	writeEl(enc, "xNome", emp.RazaoSocial)
	if emp.NomeFantasia != "" {
		writeEl(enc, "xFant", emp.NomeFantasia)
	}
	writeStart(enc, "enderEmit")
	writeEl(enc, "xLgr", emp.Logradouro)
	writeEl(enc, "nro", emp.NumeroEndereco)
	writeEl(enc, "xBairro", emp.Bairro)
	writeEl(enc, "cMun", emp.CodigoMunicipio)
	writeEl(enc, "xMun", emp.Municipio)
	writeEl(enc, "UF", emp.UF)
	writeEl(enc, "CEP", nfe.OnlyDigits(emp.CEP))
	writeEnd(enc, "enderEmit")
	writeEl(enc, "IE", nfe.OnlyDigits(emp.IE))
	writeEl(enc, "CRT", emp.CRT)
	writeEnd(enc, "emit")
}

func (s *XMLBuilderService) writeDest(enc *xml.Encoder, ctx *BuildContext) {
	dest := ctx.Documento.Destinatario

	xNome := dest.Nome
	if ctx.Documento.Ambiente == nfe.AmbienteHomologacao {
		xNome = xNomeHomologacao
	}

	writeStart(enc, "dest")
	if dest.PessoaJuridica() {
		writeEl(enc, "CNPJ", nfe.OnlyDigits(dest.CPFCNPJ))
	} else {
		writeEl(enc, "CPF", nfe.OnlyDigits(dest.CPFCNPJ))
	}
	writeEl(enc, "xNome", xNome)
	if dest.Logradouro != "" {
		writeStart(enc, "enderDest")
		writeEl(enc, "xLgr", dest.Logradouro)
		writeEl(enc, "nro", dest.NumeroEndereco)
		writeEl(enc, "xBairro", dest.Bairro)
		writeEl(enc, "cMun", dest.CodigoMunicipio)
		writeEl(enc, "xMun", dest.Municipio)
		writeEl(enc, "UF", dest.UF)
		writeEl(enc, "CEP", nfe.OnlyDigits(dest.CEP))
		writeEnd(enc, "enderDest")
	}
	if dest.PessoaJuridica() && dest.IE != "" {
		writeEl(enc, "indIEDest", "1")
		writeEl(enc, "IE", nfe.OnlyDigits(dest.IE))
	} else {
		writeEl(enc, "indIEDest", "9")
	}
	writeEnd(enc, "dest")
}

// writeDet escreve um item (det nItem="N") com prod e imposto. O grupo de
// imposto depende do CRT do emitente: CSOSN no Simples Nacional, CST no
// regime normal. Itens de serviço saem com ISSQN.
func (s *XMLBuilderService) writeDet(enc *xml.Encoder, ctx *BuildContext, item *entity.DocumentItem) {
	det := xml.StartElement{
		Name: xml.Name{Local: "det"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "nItem"}, Value: strconv.Itoa(item.NumeroItem)}},
	}
	_ = enc.EncodeToken(det)

	writeStart(enc, "prod")
	writeEl(enc, "cProd", item.Codigo)
	writeEl(enc, "xProd", item.Descricao)
	writeEl(enc, "NCM", item.NCM)
	writeEl(enc, "CFOP", item.CFOP)
	writeEl(enc, "uCom", item.Unidade)
	writeEl(enc, "qCom", formatQuantity(item.Quantidade))
	writeEl(enc, "vUnCom", formatUnitPrice(item.ValorUnitario))
	writeEl(enc, "vProd", formatDecimal(item.ValorTotal))
	writeEl(enc, "uTrib", item.Unidade)
	writeEl(enc, "qTrib", formatQuantity(item.Quantidade))
	writeEl(enc, "vUnTrib", formatUnitPrice(item.ValorUnitario))
	writeEl(enc, "indTot", "1")
	writeEnd(enc, "prod")

	writeStart(enc, "imposto")
	switch {
	case item.Servico:
		writeStart(enc, "ISSQN")
		writeEl(enc, "vBC", formatDecimal(item.BaseCalculo))
		writeEl(enc, "vAliq", formatDecimal(item.Aliquota))
		writeEl(enc, "vISSQN", formatDecimal(item.ValorImposto))
		writeEl(enc, "cMunFG", ctx.Empresa.CodigoMunicipio)
		writeEl(enc, "cListServ", "01.01")
		writeEl(enc, "indISS", "1")
		writeEnd(enc, "ISSQN")
	case ctx.Empresa.CRT == nfe.CRTSimplesNacional || ctx.Empresa.CRT == nfe.CRTSimplesExcesso:
		csosn := item.CST
		if csosn == "" {
			csosn = "102" // Simples Nacional sem permissão de crédito
		}
		writeStart(enc, "ICMS")
		writeStart(enc, "ICMSSN102")
		writeEl(enc, "orig", "0")
		writeEl(enc, "CSOSN", csosn)
		writeEnd(enc, "ICMSSN102")
		writeEnd(enc, "ICMS")
	default:
		cst := item.CST
		if cst == "" {
			cst = "00"
		}
		writeStart(enc, "ICMS")
		writeStart(enc, "ICMS00")
		writeEl(enc, "orig", "0")
		writeEl(enc, "CST", cst)
		writeEl(enc, "modBC", "3")
		writeEl(enc, "vBC", formatDecimal(item.BaseCalculo))
		writeEl(enc, "pICMS", formatDecimal(item.Aliquota))
		writeEl(enc, "vICMS", formatDecimal(item.ValorImposto))
		writeEnd(enc, "ICMS00")
		writeEnd(enc, "ICMS")
	}
	writeEnd(enc, "imposto")

	_ = enc.EncodeToken(det.End())
}

// writeTotal escreve ICMSTot. O layout exige o grupo completo mesmo zerado.
func (s *XMLBuilderService) writeTotal(enc *xml.Encoder, ctx *BuildContext) {
	vBC := decimal.Zero
	vICMS := decimal.Zero
	for _, it := range ctx.Itens {
		if !it.Servico {
			vBC = vBC.Add(it.BaseCalculo)
			vICMS = vICMS.Add(it.ValorImposto)
		}
	}
	zero := formatDecimal(decimal.Zero)

	writeStart(enc, "total")
	writeStart(enc, "ICMSTot")
	writeEl(enc, "vBC", formatDecimal(vBC))
	writeEl(enc, "vICMS", formatDecimal(vICMS))
	writeEl(enc, "vICMSDeson", zero)
	writeEl(enc, "vFCP", zero)
	writeEl(enc, "vBCST", zero)
	writeEl(enc, "vST", zero)
	writeEl(enc, "vFCPST", zero)
	writeEl(enc, "vFCPSTRet", zero)
	writeEl(enc, "vProd", formatDecimal(ctx.Documento.VProdutos))
	writeEl(enc, "vFrete", zero)
	writeEl(enc, "vSeg", zero)
	writeEl(enc, "vDesc", zero)
	writeEl(enc, "vII", zero)
	writeEl(enc, "vIPI", zero)
	writeEl(enc, "vIPIDevol", zero)
	writeEl(enc, "vPIS", zero)
	writeEl(enc, "vCOFINS", zero)
	writeEl(enc, "vOutro", zero)
	writeEl(enc, "vNF", formatDecimal(ctx.Documento.VTotal))
	writeEnd(enc, "ICMSTot")
	writeEnd(enc, "total")
}

func writeStart(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func writeEnd(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local, value string) {
	writeStart(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	writeEnd(enc, local)
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// formatQuantity: qCom/qTrib admitem até 4 casas decimais.
func formatQuantity(d decimal.Decimal) string {
	return d.Round(4).StringFixed(4)
}

// formatUnitPrice: vUnCom/vUnTrib admitem até 10 casas; 2 bastam aqui.
func formatUnitPrice(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
