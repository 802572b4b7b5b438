// sage-mcp-server exposes the report-assistant coordinator as MCP tools
// over stdio. Credentials come from SAGE_EMAIL / SAGE_PASSWORD.
package main

import (
	"context"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/sagehealth/sage-client/assistant"
	"github.com/sagehealth/sage-client/client"
	"github.com/sagehealth/sage-client/internal/config"
	"github.com/sagehealth/sage-client/internal/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.InitLogger()
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	cfg.Init()

	api := client.New(cfg.ServiceURL)
	co := assistant.New(api)
	defer co.Close()

	if cfg.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := co.Login(ctx, cfg.Email, cfg.Password); err != nil {
			cancel()
			log.Error().Err(err).Str("email", cfg.Email).Msg("login failed")
			os.Exit(1)
		}
		cancel()
		log.Info().Str("email", cfg.Email).Msg("signed in")
	} else {
		log.Warn().Msg("SAGE_EMAIL not set; session tools will fail until a user is established")
	}

	s := server.NewMCPServer("sage-assistant", "0.1.0")
	h := handlers.NewAssistantHandler(co)
	if err := h.RegisterTools(s); err != nil {
		log.Error().Err(err).Msg("tool registration failed")
		os.Exit(1)
	}

	log.Info().Str("service_url", cfg.ServiceURL).Msg("serving MCP over stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
