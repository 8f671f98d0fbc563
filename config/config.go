// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads ingestion settings from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the ingestion pipeline.
type Config struct {
	// DBPath is the BadgerDB directory. Required.
	DBPath string `envconfig:"HKEX_DB_PATH"`

	// CompanyTable is the key prefix of the company directory used for
	// graph linking. Empty disables linking.
	CompanyTable string `envconfig:"HKEX_COMPANY_TABLE"`

	// CompanyIDPattern maps a stock code and exchange to a company
	// record ID. Must contain {code} and {exchange}.
	CompanyIDPattern string `envconfig:"HKEX_COMPANY_ID_PATTERN" default:"{code}_{exchange}"`

	// BaseURL overrides the exchange endpoint, mainly for tests.
	BaseURL string `envconfig:"HKEX_BASE_URL" default:"https://www1.hkexnews.hk"`

	MaxDownloadSize int64         `envconfig:"HKEX_MAX_DOWNLOAD_SIZE" default:"26214400"`
	MaxTextLen      int           `envconfig:"HKEX_MAX_TEXT_LEN" default:"900000"`
	HTTPTimeout     time.Duration `envconfig:"HKEX_HTTP_TIMEOUT" default:"60s"`
	MaxAttempts     int           `envconfig:"HKEX_MAX_ATTEMPTS" default:"4"`
	RetryBaseDelay  time.Duration `envconfig:"HKEX_RETRY_BASE_DELAY" default:"1s"`
	Concurrency     int           `envconfig:"HKEX_MAX_DOWNLOAD_WORKERS" default:"15"`
	BatchSize       int           `envconfig:"HKEX_BATCH_SIZE" default:"50"`
}

// Load reads a .env file when one exists, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("HKEX_DB_PATH is required")
	}
	if !strings.Contains(c.CompanyIDPattern, "{code}") || !strings.Contains(c.CompanyIDPattern, "{exchange}") {
		return fmt.Errorf("HKEX_COMPANY_ID_PATTERN must contain {code} and {exchange}")
	}
	if c.MaxDownloadSize <= 0 {
		return fmt.Errorf("HKEX_MAX_DOWNLOAD_SIZE must be greater than 0")
	}
	if c.MaxTextLen <= 0 {
		return fmt.Errorf("HKEX_MAX_TEXT_LEN must be greater than 0")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("HKEX_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("HKEX_MAX_DOWNLOAD_WORKERS must be greater than 0")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("HKEX_BATCH_SIZE must be greater than 0")
	}
	return nil
}

// LinkingEnabled reports whether a company directory is configured.
func (c *Config) LinkingEnabled() bool {
	return c.CompanyTable != ""
}
