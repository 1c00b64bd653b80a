package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purenote/purenote/pkg/config"
)

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		type serverConfig struct {
			Addr    string        `env:"TEST_LOADER_ADDR" envDefault:":9090"`
			Timeout time.Duration `env:"TEST_LOADER_TIMEOUT" envDefault:"15s"`
		}

		var cfg serverConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 15*time.Second, cfg.Timeout)
	})

	t.Run("environment overrides default", func(t *testing.T) {
		type apiConfig struct {
			BaseURL string `env:"TEST_LOADER_BASE_URL" envDefault:"http://localhost"`
		}

		t.Setenv("TEST_LOADER_BASE_URL", "https://api.example.com")

		var cfg apiConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	})

	t.Run("same type is cached", func(t *testing.T) {
		type cachedConfig struct {
			Value string `env:"TEST_LOADER_CACHED" envDefault:"first"`
		}

		var first cachedConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load has no effect.
		t.Setenv("TEST_LOADER_CACHED", "second")

		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first.Value, second.Value)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[struct{}](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
