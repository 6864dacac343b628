package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Desk struct {
	// SpreadTolerance is the top-of-book width above which the algo crosses.
	SpreadTolerance float64
	// InquiryQuotePrice is sent back to every received inquiry.
	InquiryQuotePrice float64
	// InquiryLegacyNotify makes listeners see a received inquiry as it
	// arrived instead of its quoted state.
	InquiryLegacyNotify bool

	QuoteSizeMin int64
	QuoteSizeMax int64
	// QuoteSeed seeds quote sizing; 0 seeds from the clock.
	QuoteSeed uint64

	GUIThrottle   time.Duration
	GUIMaxUpdates int

	TradeBooks      []string
	ExecutionMarket string
}

type Storage struct {
	ProductsFile string
	DataDir      string
	// StorePath is the pebble directory for history; empty keeps history in memory.
	StorePath string
	OutputDir string
}

type Server struct {
	APIAddr  string
	LogFile  string
	LogLevel string
}

type Sim struct {
	Enabled  bool
	Interval time.Duration
	Seed     uint64
}

type Config struct {
	Desk    Desk
	Storage Storage
	Server  Server
	Sim     Sim
}

func Default() Config {
	return Config{
		Desk: Desk{
			SpreadTolerance:   1.0 / 128,
			InquiryQuotePrice: 100.0,
			QuoteSizeMin:      1_000_000,
			QuoteSizeMax:      1_999_999,
			GUIThrottle:       300 * time.Millisecond,
			GUIMaxUpdates:     100,
			TradeBooks:        []string{"TRSY1", "TRSY2", "TRSY3"},
			ExecutionMarket:   "BROKERTEC",
		},
		Storage: Storage{
			ProductsFile: "configs/products.yaml",
			DataDir:      "data",
			StorePath:    "data/history.db",
			OutputDir:    "output",
		},
		Server: Server{
			APIAddr:  ":8080",
			LogLevel: "info",
		},
		Sim: Sim{
			Enabled:  true,
			Interval: 250 * time.Millisecond,
			Seed:     1,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Desk.SpreadTolerance = envFloat("SPREAD_TOLERANCE", cfg.Desk.SpreadTolerance)
	cfg.Desk.InquiryQuotePrice = envFloat("INQUIRY_QUOTE_PRICE", cfg.Desk.InquiryQuotePrice)
	cfg.Desk.InquiryLegacyNotify = envBool("INQUIRY_LEGACY_NOTIFY", cfg.Desk.InquiryLegacyNotify)
	cfg.Desk.QuoteSizeMin = envInt64("QUOTE_SIZE_MIN", cfg.Desk.QuoteSizeMin)
	cfg.Desk.QuoteSizeMax = envInt64("QUOTE_SIZE_MAX", cfg.Desk.QuoteSizeMax)
	cfg.Desk.QuoteSeed = envUint64("QUOTE_SEED", cfg.Desk.QuoteSeed)
	cfg.Desk.GUIThrottle = envMillis("GUI_THROTTLE_MS", cfg.Desk.GUIThrottle)
	cfg.Desk.GUIMaxUpdates = int(envInt64("GUI_MAX_UPDATES", int64(cfg.Desk.GUIMaxUpdates)))
	cfg.Desk.ExecutionMarket = getEnv("EXECUTION_MARKET", cfg.Desk.ExecutionMarket)

	// Books from comma-separated list, e.g. "TRSY1,TRSY2,TRSY3"
	if books := os.Getenv("TRADE_BOOKS"); books != "" {
		cfg.Desk.TradeBooks = splitList(books)
	}

	cfg.Storage.ProductsFile = getEnv("PRODUCTS_FILE", cfg.Storage.ProductsFile)
	cfg.Storage.DataDir = getEnv("DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.OutputDir = getEnv("OUTPUT_DIR", cfg.Storage.OutputDir)
	if path, ok := os.LookupEnv("STORE_PATH"); ok {
		cfg.Storage.StorePath = path
	}

	cfg.Server.APIAddr = getEnv("API_ADDR", cfg.Server.APIAddr)
	cfg.Server.LogFile = getEnv("LOG_FILE", cfg.Server.LogFile)
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", cfg.Server.LogLevel)

	cfg.Sim.Enabled = envBool("SIM_ENABLED", cfg.Sim.Enabled)
	cfg.Sim.Interval = envMillis("SIM_INTERVAL_MS", cfg.Sim.Interval)
	cfg.Sim.Seed = envUint64("SIM_SEED", cfg.Sim.Seed)

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
