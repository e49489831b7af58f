// Package config provides configuration structures and utilities for sitecrawl.
// It defines the crawl session options, output preferences, storage location
// and the optional YAML file holding per-host overrides.
package config
