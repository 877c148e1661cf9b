// Package config provides configuration loading and validation for the
// voice bridge service. It handles YAML-based configuration with struct
// validation and supports overriding the speech-service credential through
// the OPENAI_API_KEY environment variable.
package config
