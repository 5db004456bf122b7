package repository

import "context"

// CertificateProvider resolve a referência de certificado de uma empresa para
// os bytes do bundle PKCS#12 e a senha. Abstrai onde o bundle mora (banco,
// cofre, disco) — o núcleo não toca filesystem nem variáveis de ambiente.
//
// Os bytes devolvidos valem para UMA operação de assinatura/transporte e são
// descartados em seguida; nunca devem ser cacheados entre operações de
// empresas diferentes.
type CertificateProvider interface {
	Bundle(ctx context.Context, companyID string) (bundle []byte, senha string, err error)
}
