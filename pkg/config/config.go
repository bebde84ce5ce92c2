// Package config loads the tuning knobs this service needs beyond the
// database connection settings in pkg/database: retrieval scoring weights,
// token budgets, and consolidation-worker intervals. It follows the same
// defaults + optional YAML overlay + env expansion shape as the teacher's
// pkg/config, scaled down to this service's much smaller settings surface.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/callin2/agent-memory-sub006/pkg/models"
)

// RetrievalWeights are the scoring weights for build_context_bundle's
// candidate ranking (§4.5). They must sum to 1.0.
type RetrievalWeights struct {
	FTS        float64 `yaml:"fts"`
	Importance float64 `yaml:"importance"`
	Recency    float64 `yaml:"recency"`
	Tag        float64 `yaml:"tag"`
}

// Config is the umbrella settings object handed to every package that
// needs tuning knobs rather than hardcoded constants.
type Config struct {
	HTTPPort string `yaml:"http_port"`
	GinMode  string `yaml:"gin_mode"`

	RetrievalWeights    RetrievalWeights `yaml:"retrieval_weights"`
	RecencyHalfLife      time.Duration    `yaml:"-"`
	RecencyHalfLifeRaw   string           `yaml:"recency_half_life"`
	DefaultMaxTokens     int              `yaml:"default_max_tokens"`
	MaxCandidatePool     int              `yaml:"max_candidate_pool"`

	ConsolidationInterval    time.Duration `yaml:"-"`
	ConsolidationIntervalRaw string        `yaml:"consolidation_interval"`

	// AuditRetention bounds how long audit_logs rows survive before
	// the consolidation worker's retention pass purges them (§4.10, §7).
	AuditRetention    time.Duration `yaml:"-"`
	AuditRetentionRaw string        `yaml:"audit_retention"`

	// UnconsolidatedHandoffThreshold is the M in §4.10's "when a
	// tenant+with_whom has accumulated M unconsolidated handoffs,
	// generate 3-5 synthesized insights".
	UnconsolidatedHandoffThreshold int `yaml:"unconsolidated_handoff_threshold"`

	// RedactionMinSensitivity is the floor at which record_event runs
	// pkg/redaction over an event's content before it is persisted or
	// chunked (§4.2: "hashing/encryption of sensitive fields, where
	// configured, occurs before insertion"). Events below this level pass
	// through unredacted.
	RedactionMinSensitivity models.Sensitivity `yaml:"redaction_min_sensitivity"`
}

// Defaults returns the built-in configuration used when no YAML overlay is
// present, mirroring the Open Question resolution recorded in DESIGN.md:
// half-life=259200s (3 days), w_fts=0.35/w_imp=0.30/w_rec=0.25/w_tag=0.10.
func Defaults() *Config {
	return &Config{
		HTTPPort: "8080",
		GinMode:  "release",
		RetrievalWeights: RetrievalWeights{
			FTS:        0.35,
			Importance: 0.30,
			Recency:    0.25,
			Tag:        0.10,
		},
		RecencyHalfLifeRaw:       "72h",
		DefaultMaxTokens:         65000,
		MaxCandidatePool:         500,
		ConsolidationIntervalRaw:       "1h",
		RedactionMinSensitivity:        models.SensitivityHigh,
		AuditRetentionRaw:              "4320h", // 180 days
		UnconsolidatedHandoffThreshold: 5,
	}
}

// Load builds the effective configuration: built-in defaults, overlaid by
// an optional YAML file at path (env-var expanded the way the teacher's
// ExpandEnv does), overlaid by environment variables. A missing path is
// not an error — this service runs fine on defaults alone.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else {
			expanded := expandEnv(data)
			var overlay Config
			if err := yaml.Unmarshal(expanded, &overlay); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("failed to merge config overlay: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.resolveDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnv expands ${VAR}/$VAR references in YAML content, the same
// shell-style substitution the teacher's ExpandEnv performs.
func expandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		cfg.GinMode = v
	}
	if v := os.Getenv("RECENCY_HALF_LIFE"); v != "" {
		cfg.RecencyHalfLifeRaw = v
	}
	if v := os.Getenv("CONSOLIDATION_INTERVAL"); v != "" {
		cfg.ConsolidationIntervalRaw = v
	}
	if v := os.Getenv("AUDIT_RETENTION"); v != "" {
		cfg.AuditRetentionRaw = v
	}
	if v := os.Getenv("REDACTION_MIN_SENSITIVITY"); v != "" {
		cfg.RedactionMinSensitivity = models.Sensitivity(v)
	}
}

func (c *Config) resolveDurations() error {
	halfLife, err := time.ParseDuration(c.RecencyHalfLifeRaw)
	if err != nil {
		return fmt.Errorf("invalid recency_half_life %q: %w", c.RecencyHalfLifeRaw, err)
	}
	c.RecencyHalfLife = halfLife

	interval, err := time.ParseDuration(c.ConsolidationIntervalRaw)
	if err != nil {
		return fmt.Errorf("invalid consolidation_interval %q: %w", c.ConsolidationIntervalRaw, err)
	}
	c.ConsolidationInterval = interval

	retention, err := time.ParseDuration(c.AuditRetentionRaw)
	if err != nil {
		return fmt.Errorf("invalid audit_retention %q: %w", c.AuditRetentionRaw, err)
	}
	c.AuditRetention = retention
	return nil
}

// Validate checks invariants Initialize alone can't enforce through types.
func (c *Config) Validate() error {
	w := c.RetrievalWeights
	sum := w.FTS + w.Importance + w.Recency + w.Tag
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("retrieval_weights must sum to 1.0, got %.4f", sum)
	}
	if c.DefaultMaxTokens <= 0 {
		return fmt.Errorf("default_max_tokens must be positive")
	}
	if c.MaxCandidatePool <= 0 {
		return fmt.Errorf("max_candidate_pool must be positive")
	}
	if !c.RedactionMinSensitivity.Valid() {
		return fmt.Errorf("redaction_min_sensitivity %q is not a valid sensitivity", c.RedactionMinSensitivity)
	}
	if c.UnconsolidatedHandoffThreshold <= 0 {
		return fmt.Errorf("unconsolidated_handoff_threshold must be positive")
	}
	return nil
}
