// Package config loads opera-events settings with viper.
//
// Values are resolved in this order, highest first: command-line flags,
// OPERA_* environment variables (dots become underscores, so
// scraper.timeout is OPERA_SCRAPER_TIMEOUT), an optional YAML file, and
// built-in defaults.
package config
