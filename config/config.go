/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Linmuge/apkextractor-sub000/lib/x509tools"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"

	defaultLogLevel = "warn"
)

var (
	Version = "unknown" // set this at link time
	Commit  = "unknown" // set this at link time
)

type Config struct {
	LogLevel      string `yaml:"log_level"`      // zerolog level name
	Format        string `yaml:"format"`         // signature report format: text, json or yaml
	ManifestEntry string `yaml:"manifest_entry"` // archive entry decoded and used for the v1 certificate
	Concurrency   int    `yaml:"concurrency"`    // number of APKs inspected at once
	NameStyle     string `yaml:"name_style"`     // certificate name format: ldap, openssl or msosco
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		LogLevel:      defaultLogLevel,
		Format:        FormatText,
		ManifestEntry: "AndroidManifest.xml",
		Concurrency:   4,
		NameStyle:     "ldap",
	}
}

func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse reads a YAML configuration. Unset values take their defaults.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// Normalize fills in defaults and validates the configuration
func (config *Config) Normalize() error {
	defaults := Default()
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.Format == "" {
		config.Format = defaults.Format
	}
	config.Format = strings.ToLower(config.Format)
	switch config.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unsupported format \"%s\"", config.Format)
	}
	if config.ManifestEntry == "" {
		config.ManifestEntry = defaults.ManifestEntry
	}
	if config.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	} else if config.Concurrency == 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.NameStyle == "" {
		config.NameStyle = defaults.NameStyle
	}
	config.NameStyle = strings.ToLower(config.NameStyle)
	if _, err := x509tools.ParseNameStyle(config.NameStyle); err != nil {
		return err
	}
	return nil
}
