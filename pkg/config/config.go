// Package config loads the environment-driven settings of spec §6 into a
// single Config struct. It replaces the teacher's manual os.Getenv helpers
// with spf13/viper (env-var binding + defaults), the pattern the pack's
// 0xtitan6-polymarket-mm repo uses for its bot configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds settings shared across the fleet plus the knobs any single
// service cares about; unused fields are simply left at their default for
// services that don't read them.
type Config struct {
	Port string

	RedisURL       string
	AdminTokenFile string
	JWTSecret      string

	CommMode string // pubsub | http | hybrid

	StartEquity    float64
	DailyTargetPct float64

	StreamIdempTTLSeconds int
	StreamMaxFailures     int
	StreamBlockMs         int
	StreamBatchSize       int

	EnableOptOnLoss    bool
	OptMinLoss         float64
	OptCooldownSeconds int

	Exchange          string // paper | binance | coinbase
	PaperPriceDefault float64
	ExchangeFeeBps    float64
	SlippageBps       float64
	ProfitPerTrade    float64

	AnalystURL      string
	RiskURL         string
	ExecutorURL     string
	NotifierURL     string
	OptimizerURL    string
	OrchestratorURL string

	AuditDBPath string

	NotifyRecentCap       int
	NotifySinkInfoURL     string
	NotifySinkWarningURL  string
	NotifySinkCriticalURL string

	TicketWebhookURL string
	KBWebhookURL     string

	LiveAPIKey    string
	LiveAPISecret string
	LiveBaseURL   string
}

// Load reads environment variables (optionally via .env) into Config. The
// service name is used only to pick a default port so multiple binaries can
// run side by side on a developer machine.
func Load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", defaultPort(serviceName))
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("ADMIN_TOKEN_FILE", "")
	v.SetDefault("JWT_SECRET", "dev-secret")

	v.SetDefault("COMM_MODE", "pubsub")

	v.SetDefault("START_EQUITY", 10000.0)
	v.SetDefault("DAILY_TARGET_PCT", 5.0)

	v.SetDefault("STREAM_IDEMP_TTL_SECONDS", 86400)
	v.SetDefault("STREAM_MAX_FAILURES", 5)
	v.SetDefault("STREAM_BLOCK_MS", 2000)
	v.SetDefault("STREAM_BATCH_SIZE", 16)

	v.SetDefault("ENABLE_OPT_ON_LOSS", false)
	v.SetDefault("OPT_MIN_LOSS", 50.0)
	v.SetDefault("OPT_COOLDOWN_SECONDS", 1800)

	v.SetDefault("EXCHANGE", "paper")
	v.SetDefault("PAPER_PRICE_DEFAULT", 100.0)
	v.SetDefault("EXCHANGE_FEE_BPS", 10.0)
	v.SetDefault("SLIPPAGE_BPS", 0.0)
	v.SetDefault("PROFIT_PER_TRADE", 5.0)

	v.SetDefault("ANALYST_URL", "http://localhost:8081")
	v.SetDefault("RISK_URL", "http://localhost:8082")
	v.SetDefault("EXECUTOR_URL", "http://localhost:8083")
	v.SetDefault("NOTIFIER_URL", "http://localhost:8084")
	v.SetDefault("OPTIMIZER_URL", "http://localhost:8085")
	v.SetDefault("ORCHESTRATOR_URL", "http://localhost:8080")

	v.SetDefault("AUDIT_DB_PATH", "./data/audit.db")
	v.SetDefault("NOTIFY_RECENT_CAP", 200)
	v.SetDefault("NOTIFY_SINK_INFO_URL", "")
	v.SetDefault("NOTIFY_SINK_WARNING_URL", "")
	v.SetDefault("NOTIFY_SINK_CRITICAL_URL", "")
	v.SetDefault("TICKET_WEBHOOK_URL", "")
	v.SetDefault("KB_WEBHOOK_URL", "")
	v.SetDefault("LIVE_API_KEY", "")
	v.SetDefault("LIVE_API_SECRET", "")
	v.SetDefault("LIVE_BASE_URL", "")

	cfg := &Config{
		Port:                  v.GetString("PORT"),
		RedisURL:              v.GetString("REDIS_URL"),
		AdminTokenFile:        v.GetString("ADMIN_TOKEN_FILE"),
		JWTSecret:             v.GetString("JWT_SECRET"),
		CommMode:              strings.ToLower(v.GetString("COMM_MODE")),
		StartEquity:           v.GetFloat64("START_EQUITY"),
		DailyTargetPct:        v.GetFloat64("DAILY_TARGET_PCT"),
		StreamIdempTTLSeconds: v.GetInt("STREAM_IDEMP_TTL_SECONDS"),
		StreamMaxFailures:     v.GetInt("STREAM_MAX_FAILURES"),
		StreamBlockMs:         v.GetInt("STREAM_BLOCK_MS"),
		StreamBatchSize:       v.GetInt("STREAM_BATCH_SIZE"),
		EnableOptOnLoss:       v.GetBool("ENABLE_OPT_ON_LOSS"),
		OptMinLoss:            v.GetFloat64("OPT_MIN_LOSS"),
		OptCooldownSeconds:    v.GetInt("OPT_COOLDOWN_SECONDS"),
		Exchange:              strings.ToLower(v.GetString("EXCHANGE")),
		PaperPriceDefault:     v.GetFloat64("PAPER_PRICE_DEFAULT"),
		ExchangeFeeBps:        v.GetFloat64("EXCHANGE_FEE_BPS"),
		SlippageBps:           v.GetFloat64("SLIPPAGE_BPS"),
		ProfitPerTrade:        v.GetFloat64("PROFIT_PER_TRADE"),
		AnalystURL:            v.GetString("ANALYST_URL"),
		RiskURL:               v.GetString("RISK_URL"),
		ExecutorURL:           v.GetString("EXECUTOR_URL"),
		NotifierURL:           v.GetString("NOTIFIER_URL"),
		OptimizerURL:          v.GetString("OPTIMIZER_URL"),
		OrchestratorURL:       v.GetString("ORCHESTRATOR_URL"),
		AuditDBPath:           v.GetString("AUDIT_DB_PATH"),
		NotifyRecentCap:       v.GetInt("NOTIFY_RECENT_CAP"),
		NotifySinkInfoURL:     v.GetString("NOTIFY_SINK_INFO_URL"),
		NotifySinkWarningURL:  v.GetString("NOTIFY_SINK_WARNING_URL"),
		NotifySinkCriticalURL: v.GetString("NOTIFY_SINK_CRITICAL_URL"),
		TicketWebhookURL:      v.GetString("TICKET_WEBHOOK_URL"),
		KBWebhookURL:          v.GetString("KB_WEBHOOK_URL"),
		LiveAPIKey:            v.GetString("LIVE_API_KEY"),
		LiveAPISecret:         v.GetString("LIVE_API_SECRET"),
		LiveBaseURL:           v.GetString("LIVE_BASE_URL"),
	}

	switch cfg.CommMode {
	case "pubsub", "http", "hybrid":
	default:
		return nil, fmt.Errorf("config: invalid COMM_MODE %q", cfg.CommMode)
	}
	switch cfg.Exchange {
	case "paper", "binance", "coinbase":
	default:
		return nil, fmt.Errorf("config: invalid EXCHANGE %q", cfg.Exchange)
	}

	return cfg, nil
}

func defaultPort(service string) string {
	ports := map[string]string{
		"orchestrator": "8080",
		"analyst":      "8081",
		"risk":         "8082",
		"executor":     "8083",
		"notifier":     "8084",
		"optimizer":    "8085",
		"integrations": "8086",
	}
	if p, ok := ports[service]; ok {
		return p
	}
	return "8080"
}
