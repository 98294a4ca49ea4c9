package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment variables read as configuration. Nested
// keys are separated by a double underscore:
//
//	PORTAL_DATAVERSE__PROJECTS__TABLE=sgr_projects
const EnvPrefix = "PORTAL_"

// listKeys are split on commas when set from the environment
var listKeys = map[string]bool{
	"server.allowed_origins": true,
	"catalog_cache.peers":    true,
}

// Loader loads configuration from a file, the environment and flags, in
// increasing order of precedence
type Loader struct {
	k     *koanf.Koanf
	path  string
	flags *pflag.FlagSet
}

// NewLoader loads configuration from path and the environment
func NewLoader(path string) (*Loader, error) {
	return NewLoaderWithFlags(path, nil)
}

// NewLoaderWithFlags loads configuration from path, the environment and the
// flags that were set on the command line. A missing file is not an error;
// the deployment may be configured entirely from the environment.
func NewLoaderWithFlags(path string, flags *pflag.FlagSet) (*Loader, error) {
	l := &Loader{path: path, flags: flags}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) load() error {
	l.k = koanf.New(".")

	if l.path != "" {
		if _, err := os.Stat(l.path); err == nil {
			parser, err := parserFor(l.path)
			if err != nil {
				return err
			}
			if err := l.k.Load(file.Provider(l.path), parser); err != nil {
				return fmt.Errorf("failed to load config file %s: %w", l.path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat config file %s: %w", l.path, err)
		}
	}

	if err := l.k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		path, ok := legacyEnv[key]
		if !ok {
			return "", nil
		}
		return path, envValue(path, value)
	}), nil); err != nil {
		return fmt.Errorf("failed to load legacy environment: %w", err)
	}

	if err := l.k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		path := envKeyToPath(key)
		return path, envValue(path, value)
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	if l.flags != nil {
		mapping := GetFlagMapping()
		if err := l.k.Load(posflag.ProviderWithFlag(l.flags, ".", l.k, func(f *pflag.Flag) (string, interface{}) {
			path, ok := mapping[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return path, posflag.FlagVal(l.flags, f)
		}), nil); err != nil {
			return fmt.Errorf("failed to load flags: %w", err)
		}
	}

	return nil
}

// Get returns the loaded configuration over Default. Keys that were not set
// keep their defaults; keys set to an empty value clear them.
func (l *Loader) Get() (*Config, error) {
	cfg := Default()
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Koanf exposes the raw key space, for diagnostics
func (l *Loader) Koanf() *koanf.Koanf {
	return l.k
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	case ".hcl":
		return HCLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (use .yaml, .json, .toml or .hcl)", filepath.Ext(path))
	}
}

// envKeyToPath maps PORTAL_DATAVERSE__PROJECTS__TABLE to dataverse.projects.table
func envKeyToPath(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

func envValue(path, value string) interface{} {
	if !listKeys[path] {
		return value
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
