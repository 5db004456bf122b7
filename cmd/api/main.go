package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/emitefacil/emissor-api/internal/application/fiscal"
	infrapdf "github.com/emitefacil/emissor-api/internal/infrastructure/pdf"
	"github.com/emitefacil/emissor-api/internal/infrastructure/postgres"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz"
	"github.com/emitefacil/emissor-api/internal/infrastructure/sefaz/signer"
	httpRouter "github.com/emitefacil/emissor-api/internal/interfaces/http"
	"github.com/emitefacil/emissor-api/pkg/config"
	"github.com/emitefacil/emissor-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("carregar configuração: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicação")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexão ao PostgreSQL")
	}
	defer pool.Close()

	docRepo := postgres.NewDocumentRepository(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	certProvider := postgres.NewCertificateProvider(pool)

	// Transporte SOAP mTLS contra a SEFAZ. O ambiente (produção ou
	// homologação) vem do cadastro da empresa, por operação.
	soapClient, err := sefaz.NewSOAPClient(cfg.Sefaz, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar cliente SOAP da SEFAZ")
	}

	fiscalSvc := fiscal.NewService(
		docRepo, companyRepo, certProvider,
		sefaz.NewXMLBuilderService(),
		sefaz.NewEnvelopeBuilder(),
		signer.NewDigitalSignatureService(),
		soapClient,
		sefaz.NewResponseInterpreter(),
		infrapdf.NewDANFEGenerator(),
		log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 120,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Fiscal: fiscalSvc,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("sinal de desligamento recebido, encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("desligamento do servidor")
	}

	log.Info().Msg("aplicação encerrada")
}
