package sefaz

import (
	"fmt"

	"github.com/beevik/etree"
)

// Protocolo é o protNFe normalizado. Alguns webservices devolvem protNFe
// singular, outros repetido (lote com mais de uma nota); a normalização para
// uma lista acontece uma única vez aqui e o resto do sistema nunca vê a
// diferença. Bruto guarda o XML do protNFe inteiro para montar o nfeProc.
type Protocolo struct {
	CStat           string
	XMotivo         string
	NumeroProtocolo string
	ChaveAcesso     string
	DhRecbto        string
	Bruto           string
}

// Resultado é a leitura estruturada de um retorno da SEFAZ. CStat/XMotivo são
// do nível do lote (ou da consulta); Protocolos carrega os protNFe
// encontrados, já normalizados. Bruto preserva o corpo original.
type Resultado struct {
	CStat      string
	XMotivo    string
	Recibo     string
	Protocolos []Protocolo
	Bruto      []byte
}

// PrimeiroProtocolo devolve o primeiro protNFe, ou nil.
func (r *Resultado) PrimeiroProtocolo() *Protocolo {
	if len(r.Protocolos) == 0 {
		return nil
	}
	return &r.Protocolos[0]
}

// ProtocoloDaChave devolve o protNFe da chave dada, ou o primeiro quando o
// retorno não ecoa chave (consulta individual).
func (r *Resultado) ProtocoloDaChave(chave string) *Protocolo {
	for i := range r.Protocolos {
		if r.Protocolos[i].ChaveAcesso == chave {
			return &r.Protocolos[i]
		}
	}
	for i := range r.Protocolos {
		if r.Protocolos[i].ChaveAcesso == "" {
			return &r.Protocolos[i]
		}
	}
	return nil
}

// ResultadoEvento é a leitura do retorno de registro de evento.
type ResultadoEvento struct {
	CStatLote string
	CStat     string
	XMotivo   string
	Protocolo string // nProt do evento homologado
	Bruto     []byte
}

// ResponseInterpreter lê retornos SOAP da SEFAZ de forma tolerante: caminha a
// árvore por nome local, sem depender de prefixo nem da posição exata dos
// elementos. Quando o corpo não é XML utilizável, devolve o bruto junto com o
// erro, sem abortar o fluxo do chamador.
type ResponseInterpreter struct{}

// NewResponseInterpreter cria o interpreter.
func NewResponseInterpreter() *ResponseInterpreter {
	return &ResponseInterpreter{}
}

// Interpretar lê retornos de autorização (retEnviNFe) e de consulta
// (retConsSitNFe). O cStat do nível superior e o protNFe (singular ou
// repetido) são extraídos; campos ausentes ficam vazios em vez de falhar.
func (i *ResponseInterpreter) Interpretar(corpo []byte) (*Resultado, error) {
	res := &Resultado{Bruto: corpo}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(corpo); err != nil {
		return res, fmt.Errorf("sefaz: corpo da resposta não é XML utilizável: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return res, fmt.Errorf("sefaz: resposta XML vazia")
	}

	// cStat/xMotivo do nível do retorno: o primeiro cStat que não esteja
	// dentro de um protNFe/infProt.
	ret := firstByLocalName(root, "retEnviNFe")
	if ret == nil {
		ret = firstByLocalName(root, "retConsSitNFe")
	}
	if ret == nil {
		ret = root
	}
	for _, child := range ret.ChildElements() {
		switch localName(child) {
		case "cStat":
			res.CStat = child.Text()
		case "xMotivo":
			res.XMotivo = child.Text()
		}
	}
	if rec := firstByLocalName(ret, "infRec"); rec != nil {
		if n := firstByLocalName(rec, "nRec"); n != nil {
			res.Recibo = n.Text()
		}
	} else if n := childByLocalName(ret, "nRec"); n != nil {
		res.Recibo = n.Text()
	}

	// protNFe singular ou repetido: normalizado para lista aqui.
	for _, prot := range allByLocalName(ret, "protNFe") {
		res.Protocolos = append(res.Protocolos, lerProtocolo(prot))
	}

	return res, nil
}

// InterpretarEvento lê o retorno de registro de evento (retEnvEvento).
func (i *ResponseInterpreter) InterpretarEvento(corpo []byte) (*ResultadoEvento, error) {
	res := &ResultadoEvento{Bruto: corpo}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(corpo); err != nil {
		return res, fmt.Errorf("sefaz: corpo da resposta não é XML utilizável: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return res, fmt.Errorf("sefaz: resposta XML vazia")
	}

	if ret := firstByLocalName(root, "retEnvEvento"); ret != nil {
		if c := childByLocalName(ret, "cStat"); c != nil {
			res.CStatLote = c.Text()
		}
	}

	// retEvento/infEvento: resultado do evento em si.
	if inf := firstByLocalName(root, "retEvento"); inf != nil {
		if ie := firstByLocalName(inf, "infEvento"); ie != nil {
			for _, child := range ie.ChildElements() {
				switch localName(child) {
				case "cStat":
					res.CStat = child.Text()
				case "xMotivo":
					res.XMotivo = child.Text()
				case "nProt":
					res.Protocolo = child.Text()
				}
			}
		}
	}

	return res, nil
}

func lerProtocolo(prot *etree.Element) Protocolo {
	p := Protocolo{}
	if s := serializeElement(prot); s != "" {
		p.Bruto = s
	}
	inf := firstByLocalName(prot, "infProt")
	if inf == nil {
		inf = prot
	}
	for _, child := range inf.ChildElements() {
		switch localName(child) {
		case "cStat":
			p.CStat = child.Text()
		case "xMotivo":
			p.XMotivo = child.Text()
		case "nProt":
			p.NumeroProtocolo = child.Text()
		case "chNFe":
			p.ChaveAcesso = child.Text()
		case "dhRecbto":
			p.DhRecbto = child.Text()
		}
	}
	return p
}

// localName devolve o nome do elemento sem prefixo.
func localName(el *etree.Element) string {
	return el.Tag
}

// firstByLocalName busca em profundidade o primeiro elemento com o nome dado,
// ignorando prefixos de namespace.
func firstByLocalName(el *etree.Element, name string) *etree.Element {
	if el == nil {
		return nil
	}
	if localName(el) == name {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := firstByLocalName(child, name); found != nil {
			return found
		}
	}
	return nil
}

// childByLocalName busca apenas nos filhos diretos.
func childByLocalName(el *etree.Element, name string) *etree.Element {
	for _, child := range el.ChildElements() {
		if localName(child) == name {
			return child
		}
	}
	return nil
}

// allByLocalName coleta em profundidade todos os elementos com o nome dado.
func allByLocalName(el *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		if localName(e) == name {
			out = append(out, e)
			return
		}
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(el)
	return out
}

func serializeElement(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}
