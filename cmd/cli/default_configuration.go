package cli

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	configurationKeySeparatorConstant      = "."
	embeddedDefaultsParseErrorTemplate     = "unable to parse embedded defaults: %w"
	embeddedSectionMissingTemplateConstant = "embedded defaults have no %s section"
)

//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// EmbeddedDefaultConfiguration returns a copy of the embedded YAML defaults and their format name.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}

// embeddedCommonDefaults flattens the common section of the embedded defaults into
// dotted keys such as common.log_level.
func embeddedCommonDefaults() (map[string]any, error) {
	var document map[string]map[string]any
	if decodeError := yaml.Unmarshal(defaultConfigurationDocument, &document); decodeError != nil {
		return nil, fmt.Errorf(embeddedDefaultsParseErrorTemplate, decodeError)
	}

	commonSection, exists := document[commonConfigurationKeyConstant]
	if !exists {
		return nil, fmt.Errorf(embeddedSectionMissingTemplateConstant, commonConfigurationKeyConstant)
	}

	defaults := make(map[string]any, len(commonSection))
	for key, value := range commonSection {
		defaults[commonConfigurationKeyConstant+configurationKeySeparatorConstant+key] = value
	}
	return defaults, nil
}
