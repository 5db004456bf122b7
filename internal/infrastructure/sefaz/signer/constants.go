// Constantes do perfil de assinatura da NF-e (XMLDSig enveloped).

package signer

// Namespaces e algoritmos XMLDSig exigidos pelo layout da NF-e. O perfil da
// jurisdição ainda manda SHA-1 com RSA; não é escolha deste código.
const (
	NamespaceDS = "http://www.w3.org/2000/09/xmldsig#"

	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)
