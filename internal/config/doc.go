// Package config loads, validates, and normalizes seqwork configuration
// from TOML. A sample configuration is embedded for "seqwork config init".
package config
