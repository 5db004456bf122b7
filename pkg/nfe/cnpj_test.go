package nfe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emitefacil/emissor-api/pkg/nfe"
)

func TestValidateCNPJ(t *testing.T) {
	assert.NoError(t, nfe.ValidateCNPJ("11222333000181"))
	assert.NoError(t, nfe.ValidateCNPJ("11.222.333/0001-81"), "máscara deve ser aceita")

	assert.Error(t, nfe.ValidateCNPJ("11222333000180"), "segundo DV errado")
	assert.Error(t, nfe.ValidateCNPJ("11222333000171"), "primeiro DV errado")
	assert.Error(t, nfe.ValidateCNPJ("112223330001"), "curto demais")
	assert.Error(t, nfe.ValidateCNPJ("00000000000000"), "dígitos repetidos")
}

func TestValidateCPF(t *testing.T) {
	assert.NoError(t, nfe.ValidateCPF("52998224725"))
	assert.NoError(t, nfe.ValidateCPF("529.982.247-25"))

	assert.Error(t, nfe.ValidateCPF("52998224724"))
	assert.Error(t, nfe.ValidateCPF("11111111111"))
	assert.Error(t, nfe.ValidateCPF("5299822472"))
}

func TestOnlyDigits(t *testing.T) {
	assert.Equal(t, "11222333000181", nfe.OnlyDigits("11.222.333/0001-81"))
	assert.Equal(t, "", nfe.OnlyDigits("abc"))
}
