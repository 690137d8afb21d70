package main

import (
	"context"
	"log"
	"os"
	"strings"

	"tribunal-eval/api/internal/allowlist"
	"tribunal-eval/api/internal/config"
	"tribunal-eval/api/internal/httpserver"
	"tribunal-eval/api/internal/ledger"
	"tribunal-eval/api/internal/roster"
	"tribunal-eval/api/internal/rubric"
	"tribunal-eval/api/internal/web"
)

func main() {
	cfg := config.Load()

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8000"
	}

	r, err := rubric.Load(cfg.RubricPath)
	if err != nil {
		log.Fatalf("rubric: %v", err)
	}

	// недоступный леджер не валит процесс: логин работает, сохранение
	// закрыто до починки учётных данных
	led, ledErr := ledger.New(context.Background(), ledger.Options{
		SheetID:         cfg.SheetID,
		Tab:             cfg.SheetTab,
		CredentialsJSON: cfg.CredentialsJSON,
		CredentialsFile: cfg.CredentialsFile,
		TTL:             cfg.LedgerTTL,
	}, r.Header())
	if ledErr != nil {
		log.Printf("[ledger] %v", ledErr)
	}

	h := web.New(
		allowlist.NewGate(cfg.AllowlistPath, cfg.EmailDomain),
		roster.NewStore(cfg.RosterPath),
		r,
		led, ledErr,
		[]byte(cfg.SessionSecret),
		cfg.TemplatesDir,
	)

	addr := ":" + cfg.Port
	log.Fatal(httpserver.Start(addr, h.Routes()))
}
