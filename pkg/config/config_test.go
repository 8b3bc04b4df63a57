package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturape/emisor-cpe/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "emisor-cpe", cfg.App.Name)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "MOCK", cfg.CPE.Provider)
	assert.Equal(t, "BETA", cfg.CPE.SUNATEnv)
	assert.Equal(t, 45*time.Second, cfg.CPE.HTTPTimeout)
	assert.Equal(t, 45*time.Second, cfg.CPE.SOAPTimeout)
}

func TestLoadDesdeEntorno(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("CPE_PROVIDER", "sunat") // se normaliza a mayúsculas
	t.Setenv("SUNAT_CPE_ENV", "prod")
	t.Setenv("CPE_HTTP_URL", "https://ose.example.com/emitir")
	t.Setenv("CPE_HTTP_TIMEOUT_MS", "10000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "SUNAT", cfg.CPE.Provider)
	assert.Equal(t, "PROD", cfg.CPE.SUNATEnv)
	assert.Equal(t, "https://ose.example.com/emitir", cfg.CPE.HTTPURL)
	assert.Equal(t, 10*time.Second, cfg.CPE.HTTPTimeout)
}
