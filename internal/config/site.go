package config

import "strings"

// SiteConfig holds per-host configuration applied to every session whose
// seed lives on that host.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request to this host.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in requests to this host.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL path globs that are never scheduled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict scheduling to URL paths matching at least one glob.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// MaxConcurrency overrides the global concurrency ceiling when positive.
	MaxConcurrency int `yaml:"maxConcurrency,omitempty"`

	// MaxRetries overrides the global retry limit when set. A pointer is
	// used because zero is a meaningful value.
	MaxRetries *int `yaml:"maxRetries,omitempty"`
}

// File represents the structure of the .sitecrawl configuration file.
type File struct {
	// Sites maps hostnames to their site-specific configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every host unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// host-specific entry over the defaults. Host lookup is case-insensitive.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	// Copy so callers cannot mutate the defaults through the map.
	if cf.Defaults.Headers != nil {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	site, ok := cf.Sites[host]
	if !ok {
		for name, candidate := range cf.Sites {
			if strings.EqualFold(name, host) {
				site, ok = candidate, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range site.Headers {
			result.Headers[k] = v
		}
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	if site.MaxConcurrency > 0 {
		result.MaxConcurrency = site.MaxConcurrency
	}
	if site.MaxRetries != nil {
		result.MaxRetries = site.MaxRetries
	}

	return result
}
