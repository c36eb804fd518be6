package configfile

import (
	"fmt"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/vmrealm/agentrt/internal/variant"
)

// HostConfig is the process-level configuration a cmd/agentrt-style
// host reads before it ever constructs a God Realm: where the update
// loop's tick interval comes from, where the admin HTTP surface
// listens (if at all), and what log level/format to boot with.
// Grounded directly on a ServerConfig/LoggingConfig-style shape: one
// small env-tagged struct per concern, decoded via envdecode after an
// optional .env file is loaded.
type HostConfig struct {
	TickIntervalMS int    `env:"AGENTRT_TICK_INTERVAL_MS,default=100"`
	LogLevel       string `env:"AGENTRT_LOG_LEVEL,default=info"`
	LogFormat      string `env:"AGENTRT_LOG_FORMAT,default=text"`

	AdminListenAddr string `env:"AGENTRT_ADMIN_ADDR,default="`

	RootScriptPath string `env:"AGENTRT_ROOT_SCRIPT,default="`

	// MaxMemPercent caps host memory usage AssureIntegrity will tolerate
	// before refusing to run further script work; 0 disables the check.
	MaxMemPercent float64 `env:"AGENTRT_MAX_MEM_PERCENT,default=0"`
}

// LoadHostConfig loads an optional .env file at envPath (ignored if it
// does not exist, a best-effort convention), then decodes HostConfig
// from the process environment.
func LoadHostConfig(envPath string) (*HostConfig, error) {
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if loadErr := godotenv.Load(envPath); loadErr != nil {
				return nil, fmt.Errorf("configfile: loading env file %q: %w", envPath, loadErr)
			}
		}
	}

	var cfg HostConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("configfile: decoding host config from environment: %w", err)
	}
	return &cfg, nil
}

// RealmConfigFromYAML parses a YAML document into a Dictionary,
// offered alongside the brace-grammar Parse above because
// hand-embedding hosts frequently prefer YAML for static template
// files checked into source control.
func RealmConfigFromYAML(data []byte) (*variant.Dictionary, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("configfile: parsing yaml realm config: %w", err)
	}
	return dictionaryFromYAMLMap(raw), nil
}

func dictionaryFromYAMLMap(raw map[string]any) *variant.Dictionary {
	dict := variant.NewDictionary()
	for k, v := range raw {
		dict.Set(variant.StringKey(k), variantFromYAMLValue(v))
	}
	return dict
}

func variantFromYAMLValue(v any) variant.Variant {
	switch t := v.(type) {
	case nil:
		return variant.Nil()
	case bool:
		return variant.Bool(t)
	case string:
		return variant.String(t)
	case int:
		return variant.Long(int64(t))
	case int64:
		return variant.Long(t)
	case float64:
		return variant.Double(t)
	case map[string]any:
		return variant.FromDictionary(dictionaryFromYAMLMap(t))
	case []any:
		seq := variant.NewDictionary()
		for _, item := range t {
			seq.Append(variantFromYAMLValue(item))
		}
		return variant.FromDictionary(seq)
	default:
		return variant.String(fmt.Sprint(t))
	}
}

// Checksum returns a short content hash for data. classmgr records it
// for each scanned class file, and VerifyIntegrity compares it to detect
// class files that changed on disk.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
