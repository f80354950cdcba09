package config

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// ── Types ────────────────────────────────────────────────────────────────────

// Rules maps a setting key to a pipe-separated rule string.
// e.g. Rules{"log.level": "required|in:debug,info,warn,error"}
type Rules map[string]string

// ValidationError holds every failed rule, grouped by key.
type ValidationError struct {
	Bag map[string][]string
}

func (e *ValidationError) add(key, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[key] = append(e.Bag[key], msg)
}

// First returns the first message for key.
func (e *ValidationError) First(key string) string {
	if msgs := e.Bag[key]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Bag))
	for k := range e.Bag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("config: invalid settings")
	for _, k := range keys {
		for _, msg := range e.Bag[k] {
			b.WriteString("\n  - ")
			b.WriteString(msg)
		}
	}
	return b.String()
}

// ── Settings ─────────────────────────────────────────────────────────────────

var settingsRules = Rules{
	"app.name":               "required",
	"app.env":                "required|in:local,production,testing",
	"log.level":              "required|in:debug,info,warn,error,DEBUG,INFO,WARN,ERROR",
	"log.format":             "required|in:text,json",
	"log.output":             "required",
	"admin.addr":             "sometimes|address",
	"admin.shutdown_timeout": "integer|gt:0",
}

// Validate checks the settings the kernel depends on.
func (s *Settings) Validate() error {
	data := map[string]string{
		"app.name":               s.App.Name,
		"app.env":                s.App.Env,
		"log.level":              s.Log.Level,
		"log.format":             s.Log.Format,
		"log.output":             s.Log.Output,
		"admin.shutdown_timeout": strconv.FormatInt(int64(s.Admin.ShutdownTimeout), 10),
	}
	if s.Admin.Enabled {
		data["admin.addr"] = s.Admin.Addr
	}
	return Validate(data, settingsRules)
}

// ── Rule engine ──────────────────────────────────────────────────────────────

// Validate applies rules to data and returns a *ValidationError listing
// every key that failed, or nil. Rules for a key stop at its first failure.
func Validate(data map[string]string, rules Rules) error {
	verr := &ValidationError{}
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value, present := data[key]
		for _, rule := range strings.Split(rules[key], "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			// min:3 → name=min, param=3
			name, param, _ := strings.Cut(rule, ":")
			if name == "sometimes" {
				if !present {
					break
				}
				continue
			}
			if msg, ok := apply(key, value, name, param); !ok {
				verr.add(key, msg)
				break
			}
		}
	}
	if len(verr.Bag) == 0 {
		return nil
	}
	return verr
}

func apply(key, value, rule, param string) (string, bool) {
	switch rule {
	case "required":
		if strings.TrimSpace(value) == "" {
			return fmt.Sprintf("%s is required", key), false
		}

	case "integer":
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Sprintf("%s must be an integer", key), false
		}

	case "gt":
		f, _ := strconv.ParseFloat(value, 64)
		t, _ := strconv.ParseFloat(param, 64)
		if f <= t {
			return fmt.Sprintf("%s must be greater than %s", key, param), false
		}

	case "in":
		for _, a := range strings.Split(param, ",") {
			if strings.TrimSpace(a) == value {
				return "", true
			}
		}
		return fmt.Sprintf("%s must be one of %s, got %q", key, param, value), false

	case "address":
		if _, _, err := net.SplitHostPort(value); err != nil {
			return fmt.Sprintf("%s must be host:port, got %q", key, value), false
		}
	}
	return "", true
}
