// Package pdf implementa a geração do DANFE (Documento Auxiliar da Nota
// Fiscal Eletrônica) em formato retrato.
//
// Layout da página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razão Social + CNPJ  │  DANFE + Nº/Série + Data     │
//	│  CHAVE DE ACESSO + código de barras (Code128)                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMITENTE: endereço / IE                                     │
//	│  DESTINATÁRIO: nome + CPF/CNPJ + endereço                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABELA: Cód | Descrição | NCM | CFOP | Un | Qtd | Vl.Unit | │
//	│          Vl.Total                                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAIS: Produtos / Serviços / TOTAL DA NOTA                 │
//	│  PROTOCOLO DE AUTORIZAÇÃO + marca d'água de cancelamento     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/emitefacil/emissor-api/internal/domain/entity"
)

// ── Paleta ────────────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 20, Green: 20, Blue: 20}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDanger  = &props.Color{Red: 180, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// DANFEGenerator implementa fiscal.DANFEGenerator usando Maroto v2.
type DANFEGenerator struct{}

// NewDANFEGenerator constrói o gerador.
func NewDANFEGenerator() *DANFEGenerator { return &DANFEGenerator{} }

// GerarDANFE gera o PDF e devolve seus bytes.
func (g *DANFEGenerator) GerarDANFE(
	_ context.Context,
	doc *entity.FiscalDocument,
	emp *entity.Company,
	itens []*entity.DocumentItem,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("DANFE", true).
		WithAuthor(emp.RazaoSocial, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc, emp))
	m.AddRows(chaveRows(doc)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emitenteRow(emp))
	m.AddRows(destinatarioRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableItemRows(itens) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totaisRow(doc))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(protocoloRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: gerar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Seções ────────────────────────────────────────────────────────────────────

// headerRow: razão social + CNPJ (esq) e identificação da nota (dir).
func headerRow(doc *entity.FiscalDocument, emp *entity.Company) core.Row {
	numero := fmt.Sprintf("Nº %09d  Série %03d", doc.Numero, doc.Serie)
	emissao := doc.Emissao.Format("02/01/2006 15:04")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(emp.RazaoSocial, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("CNPJ: "+formatCNPJ(emp.CNPJ), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("DANFE — DOCUMENTO AUXILIAR DA NF-e", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(numero, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 7,
			}),
			text.New("Emissão: "+emissao, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// chaveRows: chave de acesso em texto + código de barras Code128.
func chaveRows(doc *entity.FiscalDocument) []core.Row {
	if doc.Chave == "" {
		return nil
	}
	return []core.Row{
		row.New(5).Add(col.New(12).Add(
			text.New("CHAVE DE ACESSO", props.Text{
				Style: fontstyle.Bold, Size: 7, Top: 1,
			}),
		)),
		row.New(12).Add(
			col.New(7).Add(code.NewBar(doc.Chave, props.Barcode{
				Percent: 90,
				Center:  true,
			})),
			col.New(5).Add(text.New(formatChave(doc.Chave), props.Text{
				Size: 7.5, Top: 4, Align: align.Center, Color: colorGray,
			})),
		),
	}
}

// emitenteRow: endereço fiscal do emitente.
func emitenteRow(emp *entity.Company) core.Row {
	endereco := fmt.Sprintf("%s, %s — %s, %s/%s",
		nonEmpty(emp.Logradouro, "—"),
		nonEmpty(emp.NumeroEndereco, "s/n"),
		nonEmpty(emp.Bairro, "—"),
		nonEmpty(emp.Municipio, "—"),
		emp.UF,
	)
	return row.New(12).Add(
		col.New(12).Add(
			text.New("EMITENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%s   |   IE: %s", endereco, nonEmpty(emp.IE, "ISENTO")),
				props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// destinatarioRow: snapshot do destinatário.
func destinatarioRow(doc *entity.FiscalDocument) core.Row {
	dest := doc.Destinatario
	docLabel := "CPF"
	if dest.PessoaJuridica() {
		docLabel = "CNPJ"
	}
	endereco := fmt.Sprintf("%s, %s — %s/%s",
		nonEmpty(dest.Logradouro, "—"),
		nonEmpty(dest.NumeroEndereco, "s/n"),
		nonEmpty(dest.Municipio, "—"),
		nonEmpty(dest.UF, "—"),
	)
	return row.New(14).Add(
		col.New(12).Add(
			text.New("DESTINATÁRIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(dest.Nome, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("%s: %s   |   %s", docLabel, dest.CPFCNPJ, endereco),
				props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabeçalho da tabela de itens.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cód.", 1, align.Left),
		h("Descrição", 4, align.Left),
		h("NCM", 1, align.Center),
		h("CFOP", 1, align.Center),
		h("Un", 1, align.Center),
		h("Qtd", 1, align.Right),
		h("Vl. Unit.", 1, align.Right),
		h("Vl. Total", 2, align.Right),
	)
}

// tableItemRows: uma linha por item do documento.
func tableItemRows(itens []*entity.DocumentItem) []core.Row {
	rows := make([]core.Row, 0, len(itens))
	for _, it := range itens {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(it.Codigo, props.Text{
				Size: 7.5, Align: align.Left, Top: 1, Left: 1,
			})),
			col.New(4).Add(text.New(it.Descricao, props.Text{
				Size: 8, Align: align.Left, Top: 1, Left: 1,
			})),
			col.New(1).Add(text.New(nonEmpty(it.NCM, "—"), props.Text{
				Size: 7.5, Align: align.Center, Top: 1,
			})),
			col.New(1).Add(text.New(nonEmpty(it.CFOP, "—"), props.Text{
				Size: 7.5, Align: align.Center, Top: 1,
			})),
			col.New(1).Add(text.New(it.Unidade, props.Text{
				Size: 7.5, Align: align.Center, Top: 1,
			})),
			col.New(1).Add(text.New(it.Quantidade.StringFixed(4), props.Text{
				Size: 7.5, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(1).Add(text.New("R$ "+it.ValorUnitario.StringFixed(2), props.Text{
				Size: 7.5, Align: align.Right, Top: 1, Right: 1,
			})),
			col.New(2).Add(text.New("R$ "+it.ValorTotal.StringFixed(2), props.Text{
				Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
		))
	}
	return rows
}

// totaisRow: bloco de totais alinhado à direita.
func totaisRow(doc *entity.FiscalDocument) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Produtos:"),
			label("Serviços:"),
			grandLabel("TOTAL DA NOTA:"),
		),
		col.New(3).Add(
			value("R$ "+doc.VProdutos.StringFixed(2)),
			value("R$ "+doc.VServicos.StringFixed(2)),
			grandValue("R$ "+doc.VTotal.StringFixed(2)),
		),
		col.New(3),
	)
}

// protocoloRows: protocolo de autorização e, quando houver, o carimbo de
// cancelamento por cima.
func protocoloRows(doc *entity.FiscalDocument) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMAÇÕES DA AUTORIZAÇÃO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if doc.Protocolo != "" {
		linha := "Protocolo de autorização: " + doc.Protocolo
		if doc.AutorizadoEm != nil {
			linha += "   em " + doc.AutorizadoEm.Format("02/01/2006 15:04:05")
		}
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New(linha, props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))
	}

	if doc.Status == entity.StatusCanceled {
		rows = append(rows, row.New(10).Add(col.New(12).Add(
			text.New("NF-e CANCELADA — Protocolo do evento: "+doc.ProtocoloCancelamento, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center,
				Color: colorDanger, Top: 2,
			}),
		)))
	}

	if doc.Ambiente == "2" {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("EMITIDA EM AMBIENTE DE HOMOLOGAÇÃO — SEM VALOR FISCAL", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center,
				Color: colorDanger, Top: 2,
			}),
		)))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Consulte a autenticidade desta NF-e no portal nacional "+
				"(www.nfe.fazenda.gov.br) informando a chave de acesso acima.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatChave agrupa a chave de acesso em blocos de 4 dígitos.
// Ex: "3523...81" → "3523 1111 2223 ...".
func formatChave(chave string) string {
	buf := make([]byte, 0, len(chave)+len(chave)/4)
	for i := 0; i < len(chave); i++ {
		if i > 0 && i%4 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, chave[i])
	}
	return string(buf)
}

// formatCNPJ aplica a máscara 00.000.000/0000-00 quando possível.
func formatCNPJ(cnpj string) string {
	if len(cnpj) != 14 {
		return cnpj
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s",
		cnpj[0:2], cnpj[2:5], cnpj[5:8], cnpj[8:12], cnpj[12:14])
}
