package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/disputeflow-backend/internal/disputes"
	"github.com/yungbote/disputeflow-backend/internal/pipeline"
	"github.com/yungbote/disputeflow-backend/internal/platform/envutil"
)

// Config is the process-wide tuning surface. Environment variables supply
// the baseline; an optional YAML file named by CONFIG_PATH overrides it.
// Secrets (API keys, DSNs, tokens) never live here, only in the environment.
type Config struct {
	Engine struct {
		SimilarityThreshold  float64 `yaml:"similarity_threshold"`
		SweepCandidates      int     `yaml:"sweep_candidates"`
		SummaryBodyPrefixLen int     `yaml:"summary_body_prefix_len"`
	} `yaml:"engine"`

	Pipeline struct {
		Days            int `yaml:"days"`
		MaxResults      int `yaml:"max_results"`
		ClassifyLimit   int `yaml:"classify_limit"`
		BackfillWorkers int `yaml:"backfill_workers"`
	} `yaml:"pipeline"`

	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
}

// Load builds the config from the environment, then applies the YAML file at
// CONFIG_PATH when one is set. A configured-but-missing file is an error; a
// blank CONFIG_PATH just means env-only.
func Load() (*Config, error) {
	cfg := &Config{}

	engine := disputes.DefaultConfig()
	cfg.Engine.SimilarityThreshold = envutil.Float("SIMILARITY_THRESHOLD", engine.SimilarityThreshold)
	cfg.Engine.SweepCandidates = envutil.Int("SWEEP_CANDIDATES", engine.SweepCandidates)
	cfg.Engine.SummaryBodyPrefixLen = envutil.Int("SUMMARY_BODY_PREFIX_LEN", engine.SummaryBodyPrefixLen)

	run := pipeline.DefaultParams()
	cfg.Pipeline.Days = envutil.Int("PIPELINE_DAYS", run.Days)
	cfg.Pipeline.MaxResults = envutil.Int("PIPELINE_MAX_RESULTS", run.MaxResults)
	cfg.Pipeline.ClassifyLimit = envutil.Int("PIPELINE_CLASSIFY_LIMIT", run.ClassifyLimit)
	cfg.Pipeline.BackfillWorkers = envutil.Int("PIPELINE_BACKFILL_WORKERS", run.BackfillWorkers)

	cfg.Server.Port = envutil.Str("PORT", "8080")
	if origin := envutil.Str("CORS_ALLOWED_ORIGIN", ""); origin != "" {
		cfg.Server.AllowedOrigins = []string{origin}
	}

	if path := envutil.Str("CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.SimilarityThreshold < 0 || c.Engine.SimilarityThreshold > 1 {
		return fmt.Errorf("engine.similarity_threshold %v out of range [0,1]", c.Engine.SimilarityThreshold)
	}
	if c.Engine.SweepCandidates < 1 {
		return fmt.Errorf("engine.sweep_candidates must be at least 1")
	}
	if c.Engine.SummaryBodyPrefixLen < 1 {
		return fmt.Errorf("engine.summary_body_prefix_len must be at least 1")
	}
	if c.Pipeline.BackfillWorkers < 1 {
		return fmt.Errorf("pipeline.backfill_workers must be at least 1")
	}
	return nil
}

// EngineConfig maps the config onto the canonicalization engine's knobs.
func (c *Config) EngineConfig() disputes.Config {
	return disputes.Config{
		SimilarityThreshold:  c.Engine.SimilarityThreshold,
		SweepCandidates:      c.Engine.SweepCandidates,
		SummaryBodyPrefixLen: c.Engine.SummaryBodyPrefixLen,
	}
}

// PipelineParams maps the config onto a pipeline run's defaults.
func (c *Config) PipelineParams() pipeline.Params {
	return pipeline.Params{
		Days:            c.Pipeline.Days,
		MaxResults:      c.Pipeline.MaxResults,
		ClassifyLimit:   c.Pipeline.ClassifyLimit,
		BackfillWorkers: c.Pipeline.BackfillWorkers,
	}
}
