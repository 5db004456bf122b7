// Package nfe: porta para assinatura digital de documentos XML da NF-e.

package nfe

import "crypto/tls"

// Signer assina um elemento de um XML fiscal e devolve o XML com a assinatura
// enveloped injetada. targetID é o valor do atributo Id do elemento assinado
// (ex: "NFe<chave>" para a nota, "ID110111<chave>01" para o evento de
// cancelamento) — a mesma implementação atende nota e evento.
type Signer interface {
	Sign(xmlBytes []byte, targetID string, cert tls.Certificate) ([]byte, error)
}
