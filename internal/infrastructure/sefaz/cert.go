// Carga do certificado digital do emitente a partir do bundle PKCS#12 (.pfx/.p12).
//
// Cada classe de falha vira um erro distinto e acionável pelo usuário: senha
// errada, bundle corrompido, certificado vencido e algoritmo de chave não
// suportado bloqueiam toda a cadeia de emissão, então "erro genérico" não
// serve para ninguém.

package sefaz

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/pkcs12"
)

var (
	// ErrCertSenha: a senha informada não decripta o bundle.
	ErrCertSenha = errors.New("sefaz: senha do certificado incorreta")
	// ErrCertCorrompido: o bundle não é um PKCS#12 válido.
	ErrCertCorrompido = errors.New("sefaz: bundle do certificado corrompido ou em formato não suportado")
	// ErrCertVencido: o certificado está fora do período de validade.
	ErrCertVencido = errors.New("sefaz: certificado digital vencido")
	// ErrCertAlgoritmo: a chave privada não é RSA (exigência do perfil de assinatura).
	ErrCertAlgoritmo = errors.New("sefaz: algoritmo de chave não suportado, o perfil de assinatura exige RSA")
)

// DecodeBundle decodifica o bundle PKCS#12 e devolve um tls.Certificate
// utilizável tanto pelo assinador quanto pelo transporte mTLS.
//
// O chamador é dono do ciclo de vida: o certificado vale para uma operação e
// não deve ser retido depois dela.
func DecodeBundle(data []byte, senha string) (tls.Certificate, error) {
	if len(data) == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: bundle vazio", ErrCertCorrompido)
	}

	priv, cert, err := pkcs12.Decode(data, senha)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return tls.Certificate{}, ErrCertSenha
		}
		return tls.Certificate{}, fmt.Errorf("%w: %v", ErrCertCorrompido, err)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return tls.Certificate{}, fmt.Errorf("%w: válido de %s a %s",
			ErrCertVencido,
			cert.NotBefore.Format("02/01/2006"),
			cert.NotAfter.Format("02/01/2006"))
	}

	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("%w: chave %T", ErrCertAlgoritmo, priv)
	}

	// pkcs12.Decode devolve só o certificado folha; para a SEFAZ ele basta
	// tanto na assinatura quanto no handshake de cliente.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  rsaKey,
		Leaf:        cert,
	}, nil
}

// LeafCertificate devolve o certificado folha parseado do tls.Certificate.
func LeafCertificate(cert tls.Certificate) (*x509.Certificate, error) {
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("%w: certificado sem cadeia", ErrCertCorrompido)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertCorrompido, err)
	}
	return leaf, nil
}
