package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Identity names the binary and the environment/config namespaces it reads.
type Identity struct {
	BinaryName string
	EnvPrefix  string
	ConfigName string
}

// DefaultIdentity is the identity of the nimbusbridge binaries.
var DefaultIdentity = Identity{
	BinaryName: "nimbusbridge",
	EnvPrefix:  "NIMBUSBRIDGE",
	ConfigName: "nimbusbridge",
}

// EnvSpec maps one environment variable onto a configuration path.
type EnvSpec struct {
	Name string
	Path []string
}

// Key returns the dotted viper key for the spec.
func (s EnvSpec) Key() string {
	return strings.Join(s.Path, ".")
}

var (
	configMu    sync.RWMutex
	appIdentity *Identity
	appConfig   *Config
)

// envSuffixes lists the short variable names (after the prefix) and the keys
// they set.
var envSuffixes = map[string][]string{
	"PROVIDER":             {"provider"},
	"S3_REGION":            {"s3", "region"},
	"S3_ENDPOINT":          {"s3", "endpoint"},
	"S3_PROFILE":           {"s3", "profile"},
	"S3_ACCESS_KEY_ID":     {"s3", "access_key_id"},
	"S3_SECRET_ACCESS_KEY": {"s3", "secret_access_key"},
	"S3_FORCE_PATH_STYLE":  {"s3", "force_path_style"},
	"S3_PART_SIZE_MB":      {"s3", "part_size_mb"},
	"S3_CONCURRENCY":       {"s3", "concurrency"},
	"S3_RATE_LIMIT":        {"s3", "rate_limit"},
	"FILE_BASE_DIR":        {"file", "base_dir"},
	"HOST":                 {"server", "host"},
	"PORT":                 {"server", "port"},
	"READ_TIMEOUT":         {"server", "read_timeout"},
	"WRITE_TIMEOUT":        {"server", "write_timeout"},
	"IDLE_TIMEOUT":         {"server", "idle_timeout"},
	"SHUTDOWN_TIMEOUT":     {"server", "shutdown_timeout"},
	"LOG_LEVEL":            {"logging", "level"},
	"LOG_PROFILE":          {"logging", "profile"},
	"METRICS_ENABLED":      {"metrics", "enabled"},
	"METRICS_PORT":         {"metrics", "port"},
	"METRICS_NAMESPACE":    {"metrics", "namespace"},
	"HEALTH_ENABLED":       {"health", "enabled"},
	"DEBUG":                {"debug", "enabled"},
	"PPROF_ENABLED":        {"debug", "pprof_enabled"},
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", "s3")

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.part_size_mb", 0)
	v.SetDefault("s3.concurrency", 0)
	v.SetDefault("s3.rate_limit", 0)

	v.SetDefault("file.base_dir", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "STRUCTURED")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.namespace", "nimbusbridge")

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}

// Load builds the configuration and stores it for GetConfig.
//
// Precedence, highest first: runtime overrides, environment variables, the
// config file, defaults. The config file is NIMBUSBRIDGE_CONFIG when set,
// otherwise the first existing user config path.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configMu.Lock()
	defer configMu.Unlock()

	if appIdentity == nil {
		id := DefaultIdentity
		appIdentity = &id
	}

	v := viper.New()
	SetDefaults(v)

	if path := configFilePath(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for _, spec := range envSpecsLocked() {
		if err := v.BindEnv(spec.Key(), spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Logging.Profile = strings.ToUpper(strings.TrimSpace(cfg.Logging.Profile))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfig = cfg
	return cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// GetIdentity returns the identity used by Load, or nil before the first load.
func GetIdentity() *Identity {
	configMu.RLock()
	defer configMu.RUnlock()
	if appIdentity == nil {
		return nil
	}
	id := *appIdentity
	return &id
}

func configFilePath() string {
	if appIdentity != nil {
		if p := strings.TrimSpace(os.Getenv(appIdentity.EnvPrefix + "_CONFIG")); p != "" {
			return p
		}
	}
	for _, p := range userConfigPathsLocked() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func getUserConfigPaths() []string {
	configMu.RLock()
	defer configMu.RUnlock()
	return userConfigPathsLocked()
}

func userConfigPathsLocked() []string {
	if appIdentity == nil {
		return []string{}
	}
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, appIdentity.ConfigName, "config.yaml"),
			filepath.Join(dir, appIdentity.ConfigName, "config.yml"),
		)
	}
	return paths
}

func getEnvSpecs() []EnvSpec {
	configMu.RLock()
	defer configMu.RUnlock()
	return envSpecsLocked()
}

func envSpecsLocked() []EnvSpec {
	if appIdentity == nil {
		return []EnvSpec{}
	}
	specs := make([]EnvSpec, 0, len(envSuffixes))
	for suffix, path := range envSuffixes {
		specs = append(specs, EnvSpec{
			Name: appIdentity.EnvPrefix + "_" + suffix,
			Path: path,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
