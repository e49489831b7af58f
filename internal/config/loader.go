package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the name of the per-host settings file looked up
// in the working and home directories.
const DefaultConfigFile = ".sitecrawl"

// xdgConfigFile is the name of the settings file under XDGConfigDir.
const xdgConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSiteConfig is returned when a defaults or sites entry
	// carries a negative limit or a malformed path glob.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)

// LoadConfigFile reads per-host settings from a YAML file. Unknown keys
// are rejected and site hostnames are lowercased. A missing file yields
// ErrConfigNotFound.
func LoadConfigFile(name string) (*File, error) {
	data, err := os.ReadFile(name) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var raw File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	cf := &File{
		Defaults: raw.Defaults,
		Sites:    make(map[string]SiteConfig, len(raw.Sites)),
	}
	if err := validateSite("defaults", cf.Defaults); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for host, site := range raw.Sites {
		key := strings.ToLower(strings.TrimSpace(host))
		if _, dup := cf.Sites[key]; dup {
			return nil, fmt.Errorf("%s: %w: host %q is listed twice", name, ErrInvalidSiteConfig, key)
		}
		if err := validateSite(key, site); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cf.Sites[key] = site
	}

	return cf, nil
}

// validateSite checks the limits and path globs of one entry.
func validateSite(label string, site SiteConfig) error {
	if site.MaxConcurrency < 0 {
		return fmt.Errorf("%w: %s: maxConcurrency must not be negative", ErrInvalidSiteConfig, label)
	}
	if site.MaxRetries != nil && *site.MaxRetries < 0 {
		return fmt.Errorf("%w: %s: maxRetries must not be negative", ErrInvalidSiteConfig, label)
	}
	for _, pattern := range append(append([]string{}, site.IgnorePatterns...), site.FollowPatterns...) {
		glob := strings.TrimSuffix(pattern, "/**")
		if _, err := path.Match(glob, ""); err != nil {
			return fmt.Errorf("%w: %s: pattern %q: %v", ErrInvalidSiteConfig, label, pattern, err)
		}
	}
	return nil
}

// FindConfigFile resolves which settings file to load. An explicit path is
// used only if it exists. Otherwise the first existing candidate wins:
// ./.sitecrawl, $XDG_CONFIG_HOME/sitecrawl/config.yaml, ~/.sitecrawl.
// It returns "" when nothing is found.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit
		}
		return ""
	}

	for _, candidate := range configCandidates() {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// configCandidates lists the implicit lookup locations in priority order.
func configCandidates() []string {
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	return candidates
}

func fileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}
