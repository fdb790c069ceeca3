package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// MetadataConfig describes bundle metadata. Any of the values could be
	// overwritten from the command line.
	MetadataConfig struct {
		Name        string `yaml:"name"`
		Title       string `yaml:"title"`
		Creator     string `yaml:"creator"`
		Publisher   string `yaml:"publisher"`
		Description string `yaml:"description"`
		Language    string `yaml:"language" validate:"omitempty,len=3,alpha"`
	}

	ExternalConfig struct {
		Resolve        bool `yaml:"resolve"`
		Workers        int  `yaml:"workers" validate:"min=1,max=64"`
		TimeoutSeconds int  `yaml:"timeout_seconds" validate:"min=1,max=300"`
	}

	ImagesConfig struct {
		Optimize    bool `yaml:"optimize"`
		MaxWidth    int  `yaml:"max_width" validate:"min=16"`
		JPEGQuality int  `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
	}

	SiteConfig struct {
		MainPath            string `yaml:"main_path" validate:"required"`
		IconPath            string `yaml:"icon_path,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
		CleanupUnreferenced bool   `yaml:"cleanup_unreferenced"`
	}

	BundleConfig struct {
		FileNameTransliterate bool `yaml:"file_name_transliterate"`
		Report                bool `yaml:"report"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Site      SiteConfig     `yaml:"site"`
		External  ExternalConfig `yaml:"external"`
		Images    ImagesConfig   `yaml:"images"`
		Bundle    BundleConfig   `yaml:"bundle"`
		Metadata  MetadataConfig `yaml:"metadata"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
