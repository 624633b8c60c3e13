package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	StoreSeedDemo bool   `env:"STORE_SEED_DEMO" envDefault:"false"`
	HTTP          HTTP
	Telegram      Telegram
	Storage       Storage
	Postgres      Postgres
	Redis         Redis
	API           API
	Price         Price
	Jobs          Jobs
	GoogleDrive   GoogleDrive
}

type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxImportBytes  int64         `env:"HTTP_MAX_IMPORT_BYTES" envDefault:"1048576"`
}

type Telegram struct {
	Token      string        `env:"TELEGRAM_TOKEN" envDefault:""`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	// AllowedChatIDs lists the chats the bot answers. The bot ignores everyone
	// while it is empty.
	AllowedChatIDs []int64 `env:"TELEGRAM_ALLOWED_CHAT_IDS" envDefault:""`
}

type Storage struct {
	Driver string `env:"STORAGE_DRIVER" envDefault:"file"`
	Dir    string `env:"STORAGE_DIR" envDefault:"data/store"`
	Key    string `env:"STORAGE_KEY" envDefault:"portfolioData"`
}

type Postgres struct {
	Host            string `env:"PG_HOST" envDefault:"localhost"`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:"asset_tracker"`
	Password        string `env:"PG_PASSWORD" envDefault:""`
	User            string `env:"PG_USER" envDefault:"postgres"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"5"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"data/migrations"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug           bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout         time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	YahooApi        YahooApi
	TencentApi      TencentApi
	CoingeckoApi    CoingeckoApi
	FundApi         FundApi
	ExchangeRateApi ExchangeRateApi
}

type YahooApi struct {
	Url string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
}

type TencentApi struct {
	Url string `env:"TENCENT_API_URL" envDefault:"https://qt.gtimg.cn"`
}

type CoingeckoApi struct {
	Url string `env:"COINGECKO_API_URL" envDefault:"https://api.coingecko.com"`
}

type FundApi struct {
	Url string `env:"FUND_API_URL" envDefault:"https://fundgz.1234567.com.cn"`
}

type ExchangeRateApi struct {
	Url string `env:"EXCHANGE_RATE_API_URL" envDefault:"https://api.exchangerate-api.com"`
}

type Price struct {
	// Mode is "live" or "simulated".
	Mode string `env:"PRICE_MODE" envDefault:"live"`
	// FailurePolicy is "retain" or "zero".
	FailurePolicy string        `env:"PRICE_FAILURE_POLICY" envDefault:"retain"`
	FetchTimeout  time.Duration `env:"PRICE_FETCH_TIMEOUT" envDefault:"8s"`
	Workers       int           `env:"PRICE_WORKERS" envDefault:"4"`
}

type Jobs struct {
	RefreshInterval time.Duration `env:"JOBS_REFRESH_INTERVAL" envDefault:"30s"`
	BackupCrontab   string        `env:"JOBS_BACKUP_CRONTAB" envDefault:"0 0 3 * * *"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
