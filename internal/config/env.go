package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvAPIKey        = "OPENAI_API_KEY"
	EnvModel         = "OPENAI_MODEL"
	EnvFallbackModel = "OPENAI_FALLBACK_MODEL"
	EnvBaseURL       = "OPENAI_BASE_URL"
	EnvDebug         = "SCING_DEBUG"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultFallbackModel = "gpt-4o-mini"
)

// Gateway holds the language-model credentials and model choice. It is read
// once at startup and not modified afterwards.
type Gateway struct {
	APIKey        string
	Model         string
	FallbackModel string
	BaseURL       string
	Debug         bool
}

func (g Gateway) HasCredential() bool {
	return g.APIKey != ""
}

// GatewayFromEnv reads the gateway settings through getenv (os.Getenv in
// production).
func GatewayFromEnv(getenv func(string) string) Gateway {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	return Gateway{
		APIKey:        strings.TrimSpace(getenv(EnvAPIKey)),
		Model:         get(EnvModel, DefaultModel),
		FallbackModel: get(EnvFallbackModel, DefaultFallbackModel),
		BaseURL:       get(EnvBaseURL, ""),
		Debug:         getenv(EnvDebug) == "1",
	}
}

// LoadDotEnv loads path into the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// GatewayFromProcess loads envFile and reads the gateway settings.
func GatewayFromProcess(envFile string) (Gateway, error) {
	if err := LoadDotEnv(envFile); err != nil {
		return Gateway{}, err
	}
	return GatewayFromEnv(os.Getenv), nil
}
