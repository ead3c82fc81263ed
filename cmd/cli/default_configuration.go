package cli

import (
	"bytes"
	_ "embed"
)

// default_config.yaml lists every configurable key so CLOUDCHORES_* environment
// variables can override keys that no config file mentions.
//
//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

// EmbeddedDefaultConfiguration returns a copy of the embedded defaults and their encoding.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(embeddedDefaultConfigurationContent), configurationTypeConstant
}
