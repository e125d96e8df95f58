package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultTrackers reproduces the card credit and savings balance timelines.
var DefaultTrackers = []string{
	"cards:credit_used:card_id:Card Credit Used Set",
	"savings_accounts:balance:savings_account_id:Savings Balance Set",
}

// TrackerSpec names a tracked field of one entity stream.
type TrackerSpec struct {
	Entity  string
	Field   string
	IDField string
	Label   string
}

// Config holds configuration shared by the replay commands.
type Config struct {
	DataDir      string
	Entities     []string
	Trackers     []TrackerSpec
	Order        string
	StrictOps    bool
	Timezone     string
	Format       string
	Out          string
	PGDSN        string
	SQLitePath   string
	MetricsFile  string
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// WatchConfig adds the watch loop settings.
type WatchConfig struct {
	Config
	Debounce time.Duration
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

// LoadWatch is Load plus the watch settings.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return WatchConfig{}, err
	}
	cfg, err := fromViper(v)
	if err != nil {
		return WatchConfig{}, err
	}
	return WatchConfig{Config: cfg, Debounce: v.GetDuration("debounce")}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", "data")
	v.SetDefault("entities", []string{"accounts", "cards", "savings_accounts"})
	v.SetDefault("track", DefaultTrackers)
	v.SetDefault("order", "ts")
	v.SetDefault("timezone", "Asia/Jakarta")
	v.SetDefault("format", "table")
	v.SetDefault("batch-size", 1000)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("debounce", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("ledger")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	trackers, err := ParseTrackers(stringList(v, "track"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DataDir:      v.GetString("data-dir"),
		Entities:     stringList(v, "entities"),
		Trackers:     trackers,
		Order:        v.GetString("order"),
		StrictOps:    v.GetBool("strict-ops"),
		Timezone:     v.GetString("timezone"),
		Format:       v.GetString("format"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		SQLitePath:   v.GetString("sqlite"),
		MetricsFile:  v.GetString("metrics-file"),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// ParseTrackers parses entity:field:id_field:label specs. The label may contain colons.
func ParseTrackers(inputs []string) ([]TrackerSpec, error) {
	specs := make([]TrackerSpec, 0, len(inputs))
	for _, input := range inputs {
		parts := strings.SplitN(input, ":", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid tracker %q: want entity:field:id_field:label", input)
		}
		spec := TrackerSpec{
			Entity:  strings.TrimSpace(parts[0]),
			Field:   strings.TrimSpace(parts[1]),
			IDField: strings.TrimSpace(parts[2]),
			Label:   strings.TrimSpace(parts[3]),
		}
		if spec.Entity == "" || spec.Field == "" || spec.IDField == "" || spec.Label == "" {
			return nil, fmt.Errorf("invalid tracker %q: empty part", input)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// stringList reads a list setting. Files and flags give a list; environment variables give one
// comma-separated string.
func stringList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	if raw == nil {
		return nil
	}

	var items []string
	if joined, ok := raw.(string); ok {
		items = strings.Split(joined, ",")
	} else {
		items = cast.ToStringSlice(raw)
	}

	list := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
