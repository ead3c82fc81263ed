package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue               = "true"
	toggleFalseCanonicalValue              = "false"
	toggleValueTypeConstant                = "bool"
	toggleParseErrorTemplateConstant       = "invalid toggle value %q; use yes or no"
	toggleArgumentTruePlaceholderConstant  = "<YES|no>"
	toggleArgumentFalsePlaceholderConstant = "<yes|NO>"
	longFlagPrefixConstant                 = "--"
	shortFlagPrefixConstant                = "-"
	flagValueSeparatorConstant             = "="
)

// toggleLiterals maps every accepted spelling to its value. CI templating tends to emit
// any of these, so all of them are honored.
var toggleLiterals = map[string]bool{
	"true":  true,
	"yes":   true,
	"on":    true,
	"1":     true,
	"t":     true,
	"y":     true,
	"false": false,
	"no":    false,
	"off":   false,
	"0":     false,
	"f":     false,
	"n":     false,
}

// AddToggleFlag registers a boolean flag that accepts yes/no style values. A bare flag means yes.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	toggleValue := newToggleFlagValue(defaultValue, target)
	flagSet.VarP(toggleValue, name, shorthand, usage)

	flag := flagSet.Lookup(name)
	if flag == nil {
		return
	}
	flag.NoOptDefVal = toggleTrueCanonicalValue
	flag.Usage = formatToggleUsage(usage, defaultValue)
}

// ParseToggle interprets a yes/no style literal; empty means yes.
func ParseToggle(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	parsedValue, known := toggleLiterals[normalizedValue]
	if !known {
		return false, fmt.Errorf(toggleParseErrorTemplateConstant, rawValue)
	}
	return parsedValue, nil
}

func formatToggleUsage(description string, defaultValue bool) string {
	placeholder := toggleArgumentFalsePlaceholderConstant
	if defaultValue {
		placeholder = toggleArgumentTruePlaceholderConstant
	}
	trimmed := strings.TrimSpace(description)
	if len(trimmed) == 0 {
		return fmt.Sprintf("`%s`", placeholder)
	}
	return fmt.Sprintf("`%s` %s", placeholder, trimmed)
}

// NormalizeToggleArguments joins "--flag value" into "--flag=value" for every toggle flag
// declared anywhere in the command tree, so pflag does not read the value as a positional
// argument. Only recognized yes/no literals are joined.
func NormalizeToggleArguments(rootCommand *cobra.Command, arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	toggles := collectToggleNames(rootCommand)
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == longFlagPrefixConstant {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		if toggles.matches(current) && index+1 < len(arguments) && isToggleLiteral(arguments[index+1]) {
			normalized = append(normalized, current+flagValueSeparatorConstant+arguments[index+1])
			index++
			continue
		}
		normalized = append(normalized, current)
	}

	return normalized
}

type toggleNames struct {
	longNames  map[string]struct{}
	shorthands map[string]struct{}
}

func collectToggleNames(rootCommand *cobra.Command) toggleNames {
	names := toggleNames{longNames: map[string]struct{}{}, shorthands: map[string]struct{}{}}
	if rootCommand == nil {
		return names
	}

	pendingCommands := []*cobra.Command{rootCommand}
	for len(pendingCommands) > 0 {
		command := pendingCommands[0]
		pendingCommands = pendingCommands[1:]
		for _, flagSet := range []*pflag.FlagSet{command.PersistentFlags(), command.Flags()} {
			flagSet.VisitAll(func(flag *pflag.Flag) {
				if _, isToggle := flag.Value.(*toggleFlagValue); !isToggle {
					return
				}
				names.longNames[flag.Name] = struct{}{}
				if len(flag.Shorthand) > 0 {
					names.shorthands[flag.Shorthand] = struct{}{}
				}
			})
		}
		pendingCommands = append(pendingCommands, command.Commands()...)
	}

	return names
}

// matches reports whether the argument is a bare toggle flag without an inline value.
func (names toggleNames) matches(argument string) bool {
	if strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}
	if strings.HasPrefix(argument, longFlagPrefixConstant) {
		_, exists := names.longNames[strings.TrimPrefix(argument, longFlagPrefixConstant)]
		return exists
	}
	if strings.HasPrefix(argument, shortFlagPrefixConstant) {
		shorthand := strings.TrimPrefix(argument, shortFlagPrefixConstant)
		if len(shorthand) != 1 {
			return false
		}
		_, exists := names.shorthands[shorthand]
		return exists
	}
	return false
}

func isToggleLiteral(candidate string) bool {
	_, known := toggleLiterals[strings.ToLower(strings.TrimSpace(candidate))]
	return known && len(strings.TrimSpace(candidate)) > 0
}

type toggleFlagValue struct {
	currentValue bool
	target       *bool
}

func newToggleFlagValue(defaultValue bool, target *bool) *toggleFlagValue {
	if target != nil {
		*target = defaultValue
	}
	return &toggleFlagValue{currentValue: defaultValue, target: target}
}

func (value *toggleFlagValue) Set(rawValue string) error {
	parsedValue, parseError := ParseToggle(rawValue)
	if parseError != nil {
		return parseError
	}

	value.currentValue = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}

	return nil
}

func (value *toggleFlagValue) String() string {
	if value == nil || !value.currentValue {
		return toggleFalseCanonicalValue
	}
	return toggleTrueCanonicalValue
}

func (value *toggleFlagValue) Type() string {
	return toggleValueTypeConstant
}
