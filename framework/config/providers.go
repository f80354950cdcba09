package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
)

// ── MapProvider ───────────────────────────────────────────────────────────────

// MapProvider serves values from memory. Nested maps are flattened into
// dotted keys.
//
//	p := config.NewMapProvider(map[string]any{
//	    "server": map[string]any{"addr": ":8080"},
//	})
//	p.Contains("server.addr") // true
type MapProvider struct {
	values map[string]any
}

// NewMapProvider copies values into a new provider.
func NewMapProvider(values map[string]any) *MapProvider {
	flat := make(map[string]any, len(values))
	flatten("", values, flat)
	return &MapProvider{values: flat}
}

func (p *MapProvider) Contains(key string) bool {
	_, ok := p.values[key]
	return ok
}

func (p *MapProvider) Value(key string, typ reflect.Type) (any, bool) {
	raw, ok := p.values[key]
	if !ok {
		return nil, false
	}
	return Convert(raw, typ)
}

// Keys returns every flattened key.
func (p *MapProvider) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	return keys
}

// flatten writes nested maps into out as dotted keys.
func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch nested := v.(type) {
		case map[string]any:
			flatten(key, nested, out)
		case map[any]any:
			m := make(map[string]any, len(nested))
			for nk, nv := range nested {
				m[fmt.Sprint(nk)] = nv
			}
			flatten(key, m, out)
		default:
			out[key] = v
		}
	}
}

// ── EnvProvider ───────────────────────────────────────────────────────────────

// EnvProvider maps dotted keys to environment variables:
// "server.read-timeout" with prefix "APP" reads APP_SERVER_READ_TIMEOUT.
// The process environment wins over the optional .env files.
type EnvProvider struct {
	prefix string
	files  map[string]string
}

// NewEnvProvider reads files (if any) with godotenv without touching the
// process environment.
func NewEnvProvider(prefix string, files ...string) (*EnvProvider, error) {
	p := &EnvProvider{prefix: prefix, files: map[string]string{}}
	if len(files) == 0 {
		return p, nil
	}
	values, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("config: reading env files: %w", err)
	}
	p.files = values
	return p, nil
}

// EnvName returns the variable name key maps to.
func (p *EnvProvider) EnvName(key string) string {
	name := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if p.prefix == "" {
		return name
	}
	return strings.ToUpper(p.prefix) + "_" + name
}

func (p *EnvProvider) lookup(key string) (string, bool) {
	name := p.EnvName(key)
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	v, ok := p.files[name]
	return v, ok
}

func (p *EnvProvider) Contains(key string) bool {
	_, ok := p.lookup(key)
	return ok
}

func (p *EnvProvider) Value(key string, typ reflect.Type) (any, bool) {
	raw, ok := p.lookup(key)
	if !ok {
		return nil, false
	}
	return Convert(raw, typ)
}
