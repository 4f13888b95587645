package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// KnownProviders lists the generative-text providers finsight knows default
// endpoints and models for. Every provider speaks the OpenAI-compatible
// chat-completions protocol.
var KnownProviders = []string{"openai", "deepseek", "siliconflow", "zai", "openrouter", "groq", "ollama"}

// ProviderConfig holds the per-provider credentials and routing information.
// It is read-only to the AI core; ownership stays with the configuration layer.
type ProviderConfig struct {
	ID      string
	APIKey  string
	Model   string
	BaseURL string

	// RPS caps client-side requests per second for this provider.
	// 0 means no local throttling.
	RPS float64
}

// Configured reports whether the provider has a usable credential.
// Ollama is local and needs no key.
func (c ProviderConfig) Configured() bool {
	return c.APIKey != "" || c.ID == "ollama"
}

// Profile is configuration to start the main server.
type Profile struct {
	Mode    string // "prod", "dev" or "demo"
	Addr    string
	Port    int
	Data    string
	Driver  string // database driver, only "sqlite" is supported
	DSN     string
	Version string

	// Providers holds the per-provider LLM configuration, keyed by provider id.
	Providers map[string]ProviderConfig

	// Priority is the user-ordered provider fallback list.
	Priority []string

	// LLM request tuning.
	LLMTimeout  int     // request timeout in seconds (default: 120)
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.2
}

// Provider default endpoints and models, applied when the corresponding
// environment variables are not set.
var providerDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"groq": {
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "llama-3.3-70b-versatile",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// ConfiguredProviders returns the ids of providers that carry a credential,
// in priority order.
func (p *Profile) ConfiguredProviders() []string {
	var ids []string
	for _, id := range p.Priority {
		if cfg, ok := p.Providers[id]; ok && cfg.Configured() {
			ids = append(ids, id)
		}
	}
	return ids
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// envKey builds the per-provider environment variable name, e.g.
// FINSIGHT_PROVIDER_OPENAI_API_KEY.
func envKey(providerID, suffix string) string {
	return "FINSIGHT_PROVIDER_" + strings.ToUpper(providerID) + "_" + suffix
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.Providers = make(map[string]ProviderConfig, len(KnownProviders))
	for _, id := range KnownProviders {
		cfg := ProviderConfig{
			ID:      id,
			APIKey:  getEnvOrDefault(envKey(id, "API_KEY"), ""),
			Model:   getEnvOrDefault(envKey(id, "MODEL"), ""),
			BaseURL: getEnvOrDefault(envKey(id, "BASE_URL"), ""),
			RPS:     getEnvOrDefaultFloat(envKey(id, "RPS"), 0),
		}
		if defaults, ok := providerDefaults[id]; ok {
			if cfg.BaseURL == "" {
				cfg.BaseURL = defaults.BaseURL
			}
			if cfg.Model == "" {
				cfg.Model = defaults.Model
			}
		}
		p.Providers[id] = cfg
	}

	if raw := getEnvOrDefault("FINSIGHT_PROVIDER_PRIORITY", ""); raw != "" {
		p.Priority = nil
		for _, id := range strings.Split(raw, ",") {
			id = strings.ToLower(strings.TrimSpace(id))
			if id == "" {
				continue
			}
			if _, ok := p.Providers[id]; !ok {
				slog.Warn("ignoring unknown provider in priority list", "provider", id)
				continue
			}
			p.Priority = append(p.Priority, id)
		}
	}
	if len(p.Priority) == 0 {
		p.Priority = []string{"openai", "deepseek", "siliconflow"}
	}

	p.LLMTimeout = getEnvOrDefaultInt("FINSIGHT_LLM_TIMEOUT_SECONDS", 120)
	p.MaxTokens = getEnvOrDefaultInt("FINSIGHT_LLM_MAX_TOKENS", 2048)
	if p.Temperature == 0 {
		p.Temperature = 0.2
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver %q, only sqlite is supported", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "finsight")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/finsight"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.DSN == "" {
		dbFile := fmt.Sprintf("finsight_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
