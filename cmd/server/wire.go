package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/live-room-service/config"
	"github.com/cwrk-planet/live-room-service/internal/adapter/asr"
	"github.com/cwrk-planet/live-room-service/internal/adapter/dighuman"
	"github.com/cwrk-planet/live-room-service/internal/adapter/llm"
	"github.com/cwrk-planet/live-room-service/internal/live"
	"github.com/cwrk-planet/live-room-service/internal/media"
	"github.com/cwrk-planet/live-room-service/internal/postgres"
	"github.com/cwrk-planet/live-room-service/internal/yamlstore"

	"github.com/go-redis/redis/v8"
)

type storage struct {
	rooms   live.ConfigStore
	archive *postgres.ChatArchive // nil, если архив выключен
	db      *postgres.DB
}

func (s *storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	st := &storage{}

	if cfg.Store.Driver == "postgres" || cfg.Postgres.ArchiveChat {
		db, err := postgres.New(ctx, postgres.Config{
			DSN:               cfg.Postgres.DSN,
			MaxConns:          cfg.Postgres.MaxConns,
			MinConns:          cfg.Postgres.MinConns,
			MaxConnLifetime:   cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
			ApplicationName:   cfg.Logging.Service,
			StatementTimeout:  cfg.Postgres.StatementTimeout,
			ConnectAttempts:   cfg.Postgres.ConnectAttempts,
		})
		if err != nil {
			return nil, err
		}
		st.db = db
		if cfg.Postgres.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		if cfg.Postgres.ArchiveChat {
			st.archive = postgres.NewChatArchive(db.Pool)
		}
	}

	switch cfg.Store.Driver {
	case "postgres":
		st.rooms = postgres.NewRoomConfigRepository(st.db.Pool)
	default:
		st.rooms = yamlstore.New(cfg.Store.Path)
	}
	slog.Info("room store", "driver", cfg.Store.Driver, "archive", st.archive != nil)
	return st, nil
}

// openRedis — nil, если redis не настроен. Недоступный redis не мешает старту:
// события в stream просто не попадут.
func openRedis(ctx context.Context, cfg config.Redis) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis ping failed", "addr", cfg.Addr, slog.Any("err", err))
	}
	return rdb
}

func buildDeps(ctx context.Context, cfg *config.Config) (live.Deps, error) {
	var deps live.Deps

	var completer llm.Completer
	switch cfg.LLM.Backend {
	case "openai":
		completer = llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.LLM.Timeout,
			RetryCount:  cfg.LLM.RetryCount,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
		})
	case "gemini":
		c, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			TopP:        cfg.LLM.TopP,
		})
		if err != nil {
			return deps, fmt.Errorf("gemini: %w", err)
		}
		completer = c
	default:
		slog.Warn("llm backend is not configured, replies will use the fallback text")
	}

	var human *dighuman.Client
	if cfg.DigitalHuman.URL != "" {
		human = dighuman.New(dighuman.Config{URL: cfg.DigitalHuman.URL, Timeout: cfg.DigitalHuman.Timeout})
		if cfg.DigitalHuman.RenderChat {
			deps.Renderer = human
		}
	}

	if completer != nil {
		deps.Replier = llm.NewReplier(completer)
		if cfg.LLM.Narrate {
			var renderer llm.Renderer
			if human != nil {
				renderer = human
			}
			deps.Narrator = llm.NewNarrator(completer, renderer)
		}
	}

	if cfg.ASR.URL != "" {
		deps.Transcriber = asr.New(asr.Config{URL: cfg.ASR.URL, Timeout: cfg.ASR.Timeout})
	}

	switch cfg.Media.Driver {
	case "s3":
		deps.Uploader = media.NewS3Store(media.S3Config{
			Bucket:       cfg.Media.S3.Bucket,
			Region:       cfg.Media.S3.Region,
			Endpoint:     cfg.Media.S3.Endpoint,
			AccessKey:    cfg.Media.S3.AccessKey,
			SecretKey:    cfg.Media.S3.SecretKey,
			UsePathStyle: cfg.Media.S3.UsePathStyle,
			Prefix:       cfg.Media.S3.Prefix,
		})
	default:
		ls, err := media.NewLocalStore(cfg.Media.Root)
		if err != nil {
			return deps, err
		}
		deps.Uploader = ls
	}

	return deps, nil
}
