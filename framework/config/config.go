package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings is the process configuration: what the kernel needs to build
// the logger, the supervisor and the admin server. Component values come
// from ConfigurationProviders instead.
type Settings struct {
	App       AppSettings
	Log       LogSettings
	Container ContainerSettings
	Admin     AdminSettings
	Metrics   MetricsSettings
}

type AppSettings struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
}

type LogSettings struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	Output string // stdout | stderr | file path
}

type ContainerSettings struct {
	StrictBindings bool
	ConfigFiles    []string // fed to a FileProvider
	EnvPrefix      string   // EnvProvider prefix
}

type AdminSettings struct {
	Enabled         bool
	Addr            string
	ShutdownTimeout time.Duration
}

type MetricsSettings struct {
	Enabled bool
}

// Load reads .env (if present) and populates Settings from environment
// variables. Call once at bootstrap: settings := config.Load()
func Load(envFiles ...string) *Settings {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Settings{
		App: AppSettings{
			Name:  env("APP_NAME", "trooper"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", false),
		},
		Log: LogSettings{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "text"),
			Output: env("LOG_OUTPUT", "stderr"),
		},
		Container: ContainerSettings{
			StrictBindings: envBool("CONTAINER_STRICT_BINDINGS", false),
			ConfigFiles:    envList("CONTAINER_CONFIG_FILES"),
			EnvPrefix:      env("CONTAINER_ENV_PREFIX", "TROOPER"),
		},
		Admin: AdminSettings{
			Enabled:         envBool("ADMIN_ENABLED", true),
			Addr:            env("ADMIN_ADDR", ":8081"),
			ShutdownTimeout: envInterval("ADMIN_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Metrics: MetricsSettings{
			Enabled: envBool("METRICS_ENABLED", true),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInterval(key string, fallback time.Duration) time.Duration {
	if d, ok := ParseInterval(os.Getenv(key)); ok {
		return d
	}
	return fallback
}
