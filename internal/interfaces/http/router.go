package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emitefacil/emissor-api/internal/application/fiscal"
)

// RouterDeps dependências para o router.
type RouterDeps struct {
	Fiscal *fiscal.Service
}

// Router registra as rotas da API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	documents := api.Group("/documents")
	handler := NewFiscalHandler(deps.Fiscal)
	documents.Post("/", handler.Create)
	documents.Get("/:id", handler.GetByID)
	documents.Get("/:id/status", handler.Status)
	documents.Get("/:id/xml", handler.XML)
	documents.Get("/:id/danfe", handler.DANFE)
	documents.Post("/:id/transmitir", handler.Transmit)
	documents.Post("/:id/consultar", handler.Query)
	documents.Post("/:id/cancelar", handler.Cancel)
}
