package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/samuelCriap/centralbuybox/config"
	"github.com/samuelCriap/centralbuybox/internal/database"
	"github.com/samuelCriap/centralbuybox/internal/notify"
	"github.com/samuelCriap/centralbuybox/internal/runner"
	"github.com/samuelCriap/centralbuybox/internal/scraper"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Arquivo .env nao encontrado, usando variaveis de ambiente do sistema")
	}

	cfg := config.Load()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Erro ao inicializar banco de dados: %v", err)
	}
	defer db.Close()

	// Pool de conexoes limitado pela mesma concorrencia da coleta para nao
	// abrir sockets sem limite
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency,
			MaxIdleConnsPerHost: cfg.Concurrency,
			MaxConnsPerHost:     cfg.Concurrency,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	limiter := scraper.NewAdaptiveRateLimiter()
	collector := scraper.NewCollector(client, limiter, cfg.BaseURL)

	var notifier runner.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		n, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("[AVISO] Notificacao desabilitada: %v", err)
		} else {
			notifier = n
		}
	}

	// Ctrl+C cancela a execucao; o ultimo checkpoint fica como ponto de
	// recuperacao
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(db, collector, cfg, notifier)
	if err := r.Run(ctx); err != nil {
		log.Fatalf("Erro na execucao da coleta: %v", err)
	}
}
