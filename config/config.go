package config

import (
	"os"
	"strconv"
	"time"
)

// Config contem as configuracoes da aplicacao
type Config struct {
	DatabasePath   string
	BaseURL        string
	Concurrency    int
	BatchSize      int
	MaxAttempts    int
	BatchPause     time.Duration
	PassPause      time.Duration
	RetentionDays  int
	CheckpointPath string

	// Notificacao por Telegram e opcional: so ativa com token e chat id
	TelegramBotToken string
	TelegramChatID   int64
}

// Load carrega as configuracoes das variaveis de ambiente
func Load() *Config {
	cfg := &Config{
		DatabasePath:   "./data/central.db",
		BaseURL:        "https://www.netshoes.com.br",
		Concurrency:    50,
		BatchSize:      500,
		MaxAttempts:    3,
		BatchPause:     3 * time.Second,
		PassPause:      15 * time.Second,
		RetentionDays:  180,
		CheckpointPath: "backup_coleta_temp.csv",
	}

	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := envInt("CONCORRENCIA"); v > 0 {
		cfg.Concurrency = v
	}
	if v := envInt("TAMANHO_LOTE"); v > 0 {
		cfg.BatchSize = v
	}
	if v := envInt("MAX_TENTATIVAS"); v > 0 {
		cfg.MaxAttempts = v
	}
	if v := envInt("PAUSA_LOTE_SEGUNDOS"); v > 0 {
		cfg.BatchPause = time.Duration(v) * time.Second
	}
	if v := envInt("PAUSA_TENTATIVA_SEGUNDOS"); v > 0 {
		cfg.PassPause = time.Duration(v) * time.Second
	}
	if v := envInt("DIAS_RETENCAO"); v > 0 {
		cfg.RetentionDays = v
	}
	if v := os.Getenv("CHECKPOINT_PATH"); v != "" {
		cfg.CheckpointPath = v
	}

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.TelegramChatID = chatID
		}
	}

	return cfg
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return parsed
}
