package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	MaxUploadSizeBytes int64

	// Reporting currency and tax policy.
	BaseCurrency    string
	TaxRate         decimal.Decimal
	CostBasisMethod string

	// Exchange rate fetching.
	RateCacheTTL     time.Duration
	CoinGeckoBaseURL string
	RiksbankBaseURL  string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found. Relying on OS environment variables and defaults.")
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	taxRateStr := getEnv("TAX_RATE", "0.30")
	taxRate, err := decimal.NewFromString(taxRateStr)
	if err != nil || taxRate.IsNegative() {
		log.Printf("WARNING: Invalid TAX_RATE '%s'. Using default 0.30. Error: %v", taxRateStr, err)
		taxRate = decimal.NewFromFloat(0.30)
	}

	rateCacheTTLStr := getEnv("RATE_CACHE_TTL", "24h")
	rateCacheTTL, err := time.ParseDuration(rateCacheTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid RATE_CACHE_TTL format '%s'. Using default 24h. Error: %v", rateCacheTTLStr, err)
		rateCacheTTL = 24 * time.Hour
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./cryptofolio.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		BaseCurrency:    getEnv("BASE_CURRENCY", "SEK"),
		TaxRate:         taxRate,
		CostBasisMethod: getEnv("COST_BASIS_METHOD", "AVERAGE_COST"),

		RateCacheTTL:     rateCacheTTL,
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", ""),
		RiksbankBaseURL:  getEnv("RIKSBANK_BASE_URL", ""),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, BaseCurrency=%s, Method=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.BaseCurrency, Cfg.CostBasisMethod)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}
