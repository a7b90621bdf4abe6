package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// profileConfig holds connection settings for a single profile.
type profileConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// configFile is ~/.worktrail/config.yaml. The flat url/api_key pair is read
// when no profile matches.
type configFile struct {
	URL           string                   `yaml:"url,omitempty"`
	APIKey        string                   `yaml:"api_key,omitempty"`
	Profiles      map[string]profileConfig `yaml:"profiles,omitempty"`
	ActiveProfile string                   `yaml:"active_profile,omitempty"`
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".worktrail", "config.yaml"), nil
}

func readConfigFile() (*configFile, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// profile returns the active profile, falling back to the flat fields.
func (c *configFile) profile() profileConfig {
	p := profileConfig{URL: c.URL, APIKey: c.APIKey}

	name := c.ActiveProfile
	if name == "" {
		name = "default"
	}
	if named, ok := c.Profiles[name]; ok {
		if named.URL != "" {
			p.URL = named.URL
		}
		if named.APIKey != "" {
			p.APIKey = named.APIKey
		}
	}
	return p
}

// resolveConfig fills flagURL and flagKey. Flag takes precedence, then env,
// then the config file.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("WORKTRAIL_URL"); v != "" {
			flagURL = v
		}
	}
	if flagKey == "" {
		flagKey = os.Getenv("WORKTRAIL_API_KEY")
	}

	cfg, err := readConfigFile()
	if err != nil {
		return
	}
	p := cfg.profile()
	if flagURL == defaultURL && p.URL != "" {
		flagURL = p.URL
	}
	if flagKey == "" && p.APIKey != "" {
		flagKey = p.APIKey
	}
}

// writeConfig stores url and apiKey as the default profile.
func writeConfig(url, apiKey string) (string, error) {
	path, err := configPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	cfg := configFile{
		Profiles:      map[string]profileConfig{"default": {URL: url, APIKey: apiKey}},
		ActiveProfile: "default",
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
