package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes the environment variables read by ApplyEnv.
const EnvPrefix = "NVGRID_"

// ApplyEnv overlays environment variables of the form
// NVGRID_<SECTION>_<KEY> onto c, e.g. NVGRID_RPC_MODE_TIMEOUT=250ms sets
// rpc.mode_timeout. Variables without a section, such as NVGRID_CONFIG, are
// left to the caller. environ is in the form returned by os.Environ.
func ApplyEnv(c *Config, environ []string) error {
	doc := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		section, key, ok := envToPath(name)
		if !ok {
			continue
		}
		table, _ := doc[section].(map[string]any)
		if table == nil {
			table = make(map[string]any)
			doc[section] = table
		}
		table[key] = parseEnvValue(value)
	}
	if len(doc) == 0 {
		return nil
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return c.Decode("environment", data)
}

// envToPath converts NVGRID_RPC_READ_BUFFER_SIZE to rpc, read_buffer_size.
func envToPath(env string) (section, key string, ok bool) {
	name := strings.ToLower(strings.TrimPrefix(env, EnvPrefix))
	section, key, ok = strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return "", "", false
	}
	return section, key, true
}

// parseEnvValue attempts to parse the string value into an appropriate type.
// Durations and log levels stay strings; their types parse them.
func parseEnvValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only with a decimal point, so addresses like 127.0.0.1:6666 stay strings.
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(s, "[") {
		var v []any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}

	return s
}
