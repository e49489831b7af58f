// Package main provides the entry point for the sitecrawl CLI.
//
// sitecrawl crawls every page reachable from a seed URL on the seed's
// host, records the links found on each page and keeps going through
// transient failures and server rate limits.
//
// Usage:
//
//	sitecrawl crawl <seed-url> [seed-url...]
//	sitecrawl history [seed-url]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
