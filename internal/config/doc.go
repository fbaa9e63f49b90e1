// Package config loads hashwatch configuration from YAML.
//
// ${VAR} references are expanded from the environment. An optional .env
// file next to the config file is loaded first so local secrets can stay
// out of the YAML.
package config
