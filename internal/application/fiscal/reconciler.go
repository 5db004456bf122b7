package fiscal

import (
	"github.com/emitefacil/emissor-api/internal/domain/entity"
	"github.com/emitefacil/emissor-api/pkg/nfe"
)

// StatusDoProtocolo traduz o cStat de um protNFe para o status do documento.
// Todo cStat de protocolo que não autoriza nem denega é rejeição: o documento
// pode ser corrigido e retransmitido.
func StatusDoProtocolo(cStat string) entity.Status {
	switch {
	case nfe.IsAutorizado(cStat):
		return entity.StatusAuthorized
	case nfe.IsDenegado(cStat):
		return entity.StatusDenied
	default:
		return entity.StatusRejected
	}
}

// StatusDaConsulta traduz o cStat de uma consulta de situação para o status
// alvo. O segundo retorno é false quando a consulta não diz nada acionável
// (ex: 217 "não consta": o documento pode nem ter chegado à SEFAZ).
func StatusDaConsulta(cStat string) (entity.Status, bool) {
	switch {
	case nfe.IsAutorizado(cStat):
		return entity.StatusAuthorized, true
	case cStat == nfe.CStatCancelado:
		return entity.StatusCanceled, true
	case nfe.IsDenegado(cStat):
		return entity.StatusDenied, true
	default:
		return "", false
	}
}

// DeveReconciliar decide se o status vindo da SEFAZ pode ser aplicado sobre o
// atual. Mesmo status = nada a fazer (idempotente); regressão = nunca.
func DeveReconciliar(atual, alvo entity.Status) bool {
	if atual == alvo {
		return false
	}
	return atual.PodeAvancarPara(alvo)
}
