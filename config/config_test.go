package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
http:
  addr: ":8080"
grpc:
  addr: ":9090"
store:
  driver: file
  path: ./rooms
redis:
  addr: "localhost:6379"
live:
  productDuration: 90s
  replyTimeout: 5s
llm:
  backend: gemini
  model: gemini-2.0-flash
media:
  driver: s3
  s3:
    bucket: audio
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Live.ProductDuration)
	assert.Equal(t, 5*time.Second, cfg.Live.ReplyTimeout)
	assert.Equal(t, 30*time.Second, cfg.Live.TranscribeTimeout)
	assert.Equal(t, "live-room:events", cfg.Redis.Stream)
	assert.EqualValues(t, 10000, cfg.Redis.MaxLen)
	assert.Equal(t, "us-east-1", cfg.Media.S3.Region)
	assert.Equal(t, "live-room-service", cfg.Logging.Service)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-6)
	assert.InDelta(t, 0.8, cfg.LLM.TopP, 1e-6)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"no http":      "grpc:\n  addr: \":9090\"\n",
		"postgres dsn": "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nstore:\n  driver: postgres\n",
		"bad llm":      "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nllm:\n  backend: claude\n",
		"llm no model": "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nllm:\n  backend: openai\n",
		"bad media":    "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nmedia:\n  driver: ftp\n",
		"s3 no bucket": "http:\n  addr: \":1\"\ngrpc:\n  addr: \":2\"\nmedia:\n  driver: s3\n",
		"bad yaml":     "http: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "gemini", cfg.LLM.Backend)
}
