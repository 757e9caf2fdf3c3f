// Package config loads process-wide configuration: connection strings,
// per-source API keys, and operational toggles (§6). Environment
// overrides are loaded with godotenv, the same way the teacher's
// cmd/pipeline/main.go does; the structured base document is YAML.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// SourceKeys holds API credentials for source adapters that require them.
type SourceKeys struct {
	OpenCorporates string `yaml:"opencorporates"`
	MetaAppID      string `yaml:"meta_app_id"`
	MetaAppSecret  string `yaml:"meta_app_secret"`
	MetaAccessToken string `yaml:"meta_access_token"`
	CanLII         string `yaml:"canlii"`
	PPSACanada     string `yaml:"ppsa_canada"`
}

// Toggles holds the operational feature toggles named in §6.
type Toggles struct {
	EnableMetaAdsIngestion         bool `yaml:"enable_meta_ads_ingestion"`
	EnableOpenCorporatesIngestion  bool `yaml:"enable_opencorporates_ingestion"`
	EnableCanLIIIngestion          bool `yaml:"enable_canlii_ingestion"`
	EnableSEDARIngestion           bool `yaml:"enable_sedar_ingestion"`
	EnablePPSAIngestion            bool `yaml:"enable_ppsa_ingestion"`
	EnableElectionsONIngestion     bool `yaml:"enable_elections_on_ingestion"`
	EnableElectionsBCIngestion     bool `yaml:"enable_elections_bc_ingestion"`
}

// Config is the process-wide configuration document.
type Config struct {
	RelationalDSN string     `yaml:"relational_dsn"`
	ObjectStore   ObjectStoreConfig `yaml:"object_store"`
	Cache         string     `yaml:"cache_dsn"`
	Sources       SourceKeys `yaml:"sources"`
	Toggles       Toggles    `yaml:"toggles"`
}

// ObjectStoreConfig configures the S3-backed provenance store (§4.1).
type ObjectStoreConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Prefix   string `yaml:"prefix"`
}

// Load reads envPath (if present) into the process environment via
// godotenv, then decodes yamlPath into a Config, then applies a small set
// of environment overrides for secrets that should never live in a
// checked-in YAML file.
func Load(envPath, yamlPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			// Mirrors the teacher's main.go: missing .env is a warning,
			// not a fatal error, since the environment may already be set.
			fmt.Fprintf(os.Stderr, "warning: could not load env file %s: %v\n", envPath, err)
		}
	}

	cfg := &Config{}
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", yamlPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", yamlPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.RelationalDSN == "" {
		return nil, fmt.Errorf("relational_dsn is required (set in config file or DATABASE_URL)")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.RelationalDSN = v
	}
	if v := os.Getenv("MITDS_S3_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := os.Getenv("MITDS_S3_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("META_ACCESS_TOKEN"); v != "" {
		cfg.Sources.MetaAccessToken = v
	}
	if v := os.Getenv("OPENCORPORATES_API_KEY"); v != "" {
		cfg.Sources.OpenCorporates = v
	}
}
