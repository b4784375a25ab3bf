package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type GRPC struct {
	Addr string `yaml:"addr"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // live-room-service
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN               string        `yaml:"dsn"`
	MaxConns          int32         `yaml:"maxConns"`
	MinConns          int32         `yaml:"minConns"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod"`
	StatementTimeout  time.Duration `yaml:"statementTimeout"`
	ConnectAttempts   int           `yaml:"connectAttempts"`
	Migrate           bool          `yaml:"migrate"`
	ArchiveChat       bool          `yaml:"archiveChat"`
}

type Redis struct {
	Addr     string `yaml:"addr"` // пусто — события в redis не пишем
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"maxLen"`
}

type Store struct {
	Driver string `yaml:"driver"` // file|postgres
	Path   string `yaml:"path"`   // для file: каталог с <room_id>.yaml
}

type Live struct {
	ProductDuration    time.Duration `yaml:"productDuration"`
	ReplyTimeout       time.Duration `yaml:"replyTimeout"`
	TranscribeTimeout  time.Duration `yaml:"transcribeTimeout"`
	NarrateTimeout     time.Duration `yaml:"narrateTimeout"`
	RenderTimeout      time.Duration `yaml:"renderTimeout"`
	ConversationCap    int           `yaml:"conversationCap"`
	HistoryWindow      int           `yaml:"historyWindow"`
	MaxMessageLen      int           `yaml:"maxMessageLen"`
	FallbackReply      string        `yaml:"fallbackReply"`
	AudioFallbackReply string        `yaml:"audioFallbackReply"`
	EventBuffer        int           `yaml:"eventBuffer"`
}

type LLM struct {
	Backend     string        `yaml:"backend"` // openai|gemini
	BaseURL     string        `yaml:"baseURL"`
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retryCount"`
	Temperature float32       `yaml:"temperature"`
	TopP        float32       `yaml:"topP"`
	Narrate     bool          `yaml:"narrate"` // генерировать narration при смене продукта
}

type ASR struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type DigitalHuman struct {
	URL        string        `yaml:"url"` // пусто — видео не рендерим
	Timeout    time.Duration `yaml:"timeout"`
	RenderChat bool          `yaml:"renderChat"` // озвучивать ответы чата
}

type S3 struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	UsePathStyle bool   `yaml:"usePathStyle"`
	Prefix       string `yaml:"prefix"`
}

type Media struct {
	Driver string `yaml:"driver"` // local|s3
	Root   string `yaml:"root"`
	S3     S3     `yaml:"s3"`
}

type Auth struct {
	Enabled       bool          `yaml:"enabled"`
	PublicKeyPath string        `yaml:"publicKeyPath"` // пусто — только проверка формата Bearer
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clockSkew"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP         HTTP         `yaml:"http"`
	GRPC         GRPC         `yaml:"grpc"`
	Logging      Logging      `yaml:"logging"`
	Postgres     Postgres     `yaml:"postgres"`
	Redis        Redis        `yaml:"redis"`
	Store        Store        `yaml:"store"`
	Live         Live         `yaml:"live"`
	LLM          LLM          `yaml:"llm"`
	ASR          ASR          `yaml:"asr"`
	DigitalHuman DigitalHuman `yaml:"digitalHuman"`
	Media        Media        `yaml:"media"`
	Auth         Auth         `yaml:"auth"`
	CORS         CORS         `yaml:"cors"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "live-room-service"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	defDuration(&c.HTTP.ReadTimeout, 10*time.Second)
	defDuration(&c.HTTP.WriteTimeout, 60*time.Second)
	defDuration(&c.HTTP.IdleTimeout, 60*time.Second)
	defDuration(&c.HTTP.RequestTimeout, 45*time.Second)
	defDuration(&c.HTTP.ShutdownTimeout, 10*time.Second)
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 10 << 20
	}

	switch c.Store.Driver {
	case "", "file":
		c.Store.Driver = "file"
		if c.Store.Path == "" {
			c.Store.Path = "./config/rooms"
		}
	case "postgres":
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if (c.Store.Driver == "postgres" || c.Postgres.ArchiveChat) && c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Postgres.StatementTimeout <= 0 {
		c.Postgres.StatementTimeout = 5 * time.Second
	}
	if c.Postgres.ConnectAttempts <= 0 {
		c.Postgres.ConnectAttempts = 5
	}

	if c.Redis.Addr != "" {
		if c.Redis.Stream == "" {
			c.Redis.Stream = "live-room:events"
		}
		if c.Redis.MaxLen <= 0 {
			c.Redis.MaxLen = 10000
		}
	}

	defDuration(&c.Live.ProductDuration, 5*time.Minute)
	defDuration(&c.Live.ReplyTimeout, 20*time.Second)
	defDuration(&c.Live.TranscribeTimeout, 30*time.Second)
	defDuration(&c.Live.NarrateTimeout, 60*time.Second)
	defDuration(&c.Live.RenderTimeout, 60*time.Second)
	if c.Live.ConversationCap <= 0 {
		c.Live.ConversationCap = 1000
	}
	if c.Live.HistoryWindow <= 0 {
		c.Live.HistoryWindow = 20
	}
	if c.Live.MaxMessageLen <= 0 {
		c.Live.MaxMessageLen = 4000
	}
	if c.Live.EventBuffer <= 0 {
		c.Live.EventBuffer = 1024
	}

	switch c.LLM.Backend {
	case "":
	case "openai", "gemini":
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required for backend %q", c.LLM.Backend)
		}
	default:
		return fmt.Errorf("llm.backend %q is not supported", c.LLM.Backend)
	}
	defDuration(&c.LLM.Timeout, 30*time.Second)
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.TopP == 0 {
		c.LLM.TopP = 0.8
	}

	defDuration(&c.ASR.Timeout, 30*time.Second)
	defDuration(&c.DigitalHuman.Timeout, 2*time.Minute)

	switch c.Media.Driver {
	case "", "local":
		c.Media.Driver = "local"
		if c.Media.Root == "" {
			c.Media.Root = "./data/uploads"
		}
	case "s3":
		if c.Media.S3.Bucket == "" {
			return errors.New("media.s3.bucket is required")
		}
		if c.Media.S3.Region == "" {
			c.Media.S3.Region = "us-east-1"
		}
	default:
		return fmt.Errorf("media.driver %q is not supported", c.Media.Driver)
	}

	if c.Auth.Enabled && c.Auth.PublicKeyPath != "" {
		defDuration(&c.Auth.ClockSkew, 30*time.Second)
	}
	return nil
}

func defDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
