package scenarios

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	pathutils "github.com/temirov/rebasebot/internal/utils/path"
)

const (
	defaultHostConstant             = "0.0.0.0"
	defaultPortConstant             = 3010
	defaultEndpointConstant         = "/mcp"
	defaultRootConstant             = "."
	defaultProgressIntervalConstant = time.Second

	endpointPrefixConstant             = "/"
	invalidChoiceErrorTemplateConstant = "invalid %s %q: expected one of %s"
	choiceListSeparatorConstant        = ", "
)

// Configuration describes how the scenario tool server listens and where it reads scenarios from.
type Configuration struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Endpoint         string        `mapstructure:"endpoint"`
	Root             string        `mapstructure:"root"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// DefaultConfiguration returns the settings used when nothing else is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		Host:             defaultHostConstant,
		Port:             defaultPortConstant,
		Endpoint:         defaultEndpointConstant,
		Root:             defaultRootConstant,
		ProgressInterval: defaultProgressIntervalConstant,
	}
}

// Sanitize trims values and restores defaults for unset fields.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.Host = strings.TrimSpace(sanitized.Host)
	if len(sanitized.Host) == 0 {
		sanitized.Host = defaults.Host
	}
	if sanitized.Port <= 0 {
		sanitized.Port = defaults.Port
	}

	sanitized.Endpoint = strings.TrimSpace(sanitized.Endpoint)
	if len(sanitized.Endpoint) == 0 {
		sanitized.Endpoint = defaults.Endpoint
	}
	if !strings.HasPrefix(sanitized.Endpoint, endpointPrefixConstant) {
		sanitized.Endpoint = endpointPrefixConstant + sanitized.Endpoint
	}

	sanitized.Root = strings.TrimSpace(sanitized.Root)
	if len(sanitized.Root) == 0 {
		sanitized.Root = defaults.Root
	}
	sanitized.Root = pathutils.ExpandHome(sanitized.Root)
	if sanitized.ProgressInterval < 0 {
		sanitized.ProgressInterval = defaults.ProgressInterval
	}

	return sanitized
}

// Address returns the host:port pair the server listens on.
func (configuration Configuration) Address() string {
	return net.JoinHostPort(configuration.Host, strconv.Itoa(configuration.Port))
}

// InvalidChoiceError reports a tool argument outside of its allowed values.
type InvalidChoiceError struct {
	FieldName string
	Value     string
	Choices   []string
}

// Error describes the rejected value.
func (choiceError InvalidChoiceError) Error() string {
	return fmt.Sprintf(invalidChoiceErrorTemplateConstant, choiceError.FieldName, choiceError.Value, strings.Join(choiceError.Choices, choiceListSeparatorConstant))
}

func requireChoice(fieldName string, value string, choices []string) error {
	for _, choice := range choices {
		if value == choice {
			return nil
		}
	}
	return InvalidChoiceError{FieldName: fieldName, Value: value, Choices: choices}
}
