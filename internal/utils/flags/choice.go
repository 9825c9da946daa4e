package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplateConstant = "<%s>"
	choiceSeparatorConstant           = "|"
	choiceUsageTemplateConstant       = "`%s` %s"
	choiceUsageBareTemplateConstant   = "`%s`"
	choiceValueTypeConstant           = "string"
	invalidChoiceTemplateConstant     = "invalid value %q: expected one of %s"
)

// FormatChoiceUsage renders a usage string listing the choices with the default in upper case.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := normalizeChoice(defaultChoice)
	rendered := make([]string, 0, len(choices))
	for _, choice := range uniqueChoices(choices) {
		if len(normalizedDefault) > 0 && normalizeChoice(choice) == normalizedDefault {
			choice = strings.ToUpper(choice)
		}
		rendered = append(rendered, choice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplateConstant, strings.Join(rendered, choiceSeparatorConstant))
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageBareTemplateConstant, placeholder)
	}
	return fmt.Sprintf(choiceUsageTemplateConstant, placeholder, description)
}

// ChoiceValue is a pflag.Value accepting only a fixed set of case-insensitive choices.
type ChoiceValue struct {
	target  *string
	choices []string
}

// NewChoiceValue binds target to a flag limited to choices. Accepted values are stored in lower case.
func NewChoiceValue(target *string, defaultValue string, choices []string) *ChoiceValue {
	*target = defaultValue
	return &ChoiceValue{target: target, choices: uniqueChoices(choices)}
}

// String returns the current value.
func (value *ChoiceValue) String() string {
	if value == nil || value.target == nil {
		return ""
	}
	return *value.target
}

// Set validates and stores the provided value.
func (value *ChoiceValue) Set(candidate string) error {
	normalizedCandidate := normalizeChoice(candidate)
	for _, choice := range value.choices {
		if normalizeChoice(choice) == normalizedCandidate {
			*value.target = normalizedCandidate
			return nil
		}
	}
	return fmt.Errorf(invalidChoiceTemplateConstant, candidate, strings.Join(value.choices, choiceSeparatorConstant))
}

// Type names the flag value type for help output.
func (value *ChoiceValue) Type() string {
	return choiceValueTypeConstant
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := normalizeChoice(trimmedChoice)
		if len(normalizedChoice) == 0 {
			continue
		}
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		unique = append(unique, trimmedChoice)
	}
	return unique
}

func normalizeChoice(choice string) string {
	return strings.ToLower(strings.TrimSpace(choice))
}
