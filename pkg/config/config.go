package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App AppConfig
	Log LogConfig
	CPE CPEConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel de log.
type LogConfig struct {
	Level string
}

// CPEConfig configuración de emisión de comprobantes electrónicos (SUNAT, Perú).
type CPEConfig struct {
	Provider string // MOCK, HTTP o SUNAT

	// Estrategia HTTP genérica (proveedor OSE/PSE vía JSON)
	HTTPURL     string
	HTTPToken   string
	HTTPAPIKey  string
	HTTPTimeout time.Duration

	// Estrategia SOAP directa contra SUNAT
	SUNATEnv    string // BETA o PROD
	SOAPTimeout time.Duration
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, CPE_PROVIDER, SUNAT_CPE_ENV, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	// También intenta config.env
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	// Bind de variables de entorno (Viper las lee automáticamente si AutomaticEnv está activo)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "emisor-cpe"),
		},
		Log: LogConfig{
			Level: getString(v, "LOG_LEVEL", "info"),
		},
		CPE: CPEConfig{
			Provider:    strings.ToUpper(getString(v, "CPE_PROVIDER", "MOCK")),
			HTTPURL:     getString(v, "CPE_HTTP_URL", ""),
			HTTPToken:   getString(v, "CPE_HTTP_TOKEN", ""),
			HTTPAPIKey:  getString(v, "CPE_HTTP_API_KEY", ""),
			HTTPTimeout: time.Duration(getInt(v, "CPE_HTTP_TIMEOUT_MS", 45000)) * time.Millisecond,
			SUNATEnv:    strings.ToUpper(getString(v, "SUNAT_CPE_ENV", "BETA")),
			SOAPTimeout: time.Duration(getInt(v, "SUNAT_SOAP_TIMEOUT_MS", 45000)) * time.Millisecond,
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
