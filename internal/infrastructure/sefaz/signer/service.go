// Serviço de assinatura digital enveloped da NF-e.
//
// A mesma operação assina a nota (alvo infNFe, Id="NFe<chave>") e o evento de
// cancelamento (alvo infEvento, Id="ID110111<chave>01"): o que muda é apenas
// o Id do elemento referenciado, passado pelo chamador. O elemento alvo é
// canonicalizado (C14N inclusivo) e o digest SHA-1 assinado com RSA-SHA1; o
// nó ds:Signature resultante entra como irmão seguinte do elemento assinado,
// com o certificado completo em Base64 no KeyInfo.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// DigitalSignatureService implementa nfe.Signer.
type DigitalSignatureService struct{}

// NewDigitalSignatureService cria o serviço.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign assina o elemento identificado por targetID e devolve o XML com o nó
// ds:Signature injetado. O elemento é assinado na sua forma serializada
// canônica, sem reordenação nem espaço extra: qualquer divergência invalida a
// assinatura na SEFAZ.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, targetID string, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sefaz: XML vazio")
	}
	if targetID == "" {
		return nil, fmt.Errorf("sefaz: targetID da assinatura é obrigatório")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sefaz: o certificado deve conter chave privada RSA")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("sefaz: parse do certificado: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sefaz: parse do XML: %w", err)
	}

	target := findByID(doc.Root(), targetID)
	if target == nil {
		return nil, fmt.Errorf("sefaz: elemento com Id=%q não encontrado no XML", targetID)
	}

	// 1) Digest C14N + SHA-1 do elemento alvo.
	targetXML, err := serializeSubtree(target)
	if err != nil {
		return nil, err
	}
	canonicalTarget, err := canonicalize(targetXML)
	if err != nil {
		return nil, fmt.Errorf("sefaz: canonicalizar elemento alvo: %w", err)
	}
	digest := sha1.Sum(canonicalTarget)
	digestB64 := base64.StdEncoding.EncodeToString(digest[:])

	// 2) SignedInfo com Reference URI="#<targetID>".
	signedInfoXML := buildSignedInfo(targetID, digestB64)
	canonicalSignedInfo, err := canonicalize([]byte(signedInfoXML))
	if err != nil {
		return nil, fmt.Errorf("sefaz: canonicalizar SignedInfo: %w", err)
	}
	signedInfoHash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA1, signedInfoHash[:])
	if err != nil {
		return nil, fmt.Errorf("sefaz: assinar SignedInfo: %w", err)
	}

	// 3) ds:Signature completo, certificado em Base64 no KeyInfo.
	signatureXML := buildSignature(
		signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(x509Cert.Raw),
	)

	// 4) Injetar como irmão seguinte do elemento assinado (enveloped).
	if err := injectSignature(target, signatureXML); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sefaz: serializar XML assinado: %w", err)
	}
	return out.Bytes(), nil
}

// findByID procura em profundidade o elemento cujo atributo Id vale id.
func findByID(el *etree.Element, id string) *etree.Element {
	if el == nil {
		return nil
	}
	if attr := el.SelectAttr("Id"); attr != nil && attr.Value == id {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// serializeSubtree serializa o elemento como documento isolado, carregando as
// declarações de namespace herdadas dos ancestrais — sem elas a forma
// canônica do subtree divergiria da forma dentro do documento.
func serializeSubtree(el *etree.Element) ([]byte, error) {
	clone := el.Copy()
	declared := map[string]bool{}
	for _, a := range clone.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			declared[a.FullKey()] = true
		}
	}
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
				if !declared[a.FullKey()] {
					clone.CreateAttr(a.FullKey(), a.Value)
					declared[a.FullKey()] = true
				}
			}
		}
	}

	sub := etree.NewDocument()
	sub.SetRoot(clone)
	var buf bytes.Buffer
	if _, err := sub.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sefaz: serializar subtree: %w", err)
	}
	return buf.Bytes(), nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func buildSignedInfo(targetID, digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)
	sb.WriteString(`<ds:Reference URI="#` + targetID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgC14N + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + digestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignature(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

// injectSignature adiciona o ds:Signature como filho do pai do elemento
// assinado, logo após ele (posição exigida pelo schema da NF-e).
func injectSignature(target *etree.Element, signatureXML string) error {
	parent := target.Parent()
	if parent == nil {
		return fmt.Errorf("sefaz: elemento assinado não tem pai para receber a assinatura")
	}
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return fmt.Errorf("sefaz: parse do nó Signature: %w", err)
	}
	sigRoot := sigDoc.Root()
	if sigRoot == nil {
		return fmt.Errorf("sefaz: nó Signature vazio")
	}
	parent.AddChild(sigRoot)
	return nil
}

var _ nfe.Signer = (*DigitalSignatureService)(nil)
