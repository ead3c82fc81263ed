package flags

import (
	"strings"

	"github.com/spf13/pflag"
)

// OverrideString replaces the configured value with the trimmed flag value when the flag was set explicitly.
func OverrideString(flagSet *pflag.FlagSet, flagName string, target *string) {
	if flagSet == nil || target == nil || !flagSet.Changed(flagName) {
		return
	}
	flagValue, flagError := flagSet.GetString(flagName)
	if flagError != nil {
		return
	}
	*target = strings.TrimSpace(flagValue)
}

// OverrideStringSlice replaces the configured values with the flag values when the flag was set explicitly.
func OverrideStringSlice(flagSet *pflag.FlagSet, flagName string, target *[]string) {
	if flagSet == nil || target == nil || !flagSet.Changed(flagName) {
		return
	}
	flagValues, flagError := flagSet.GetStringSlice(flagName)
	if flagError != nil {
		return
	}
	*target = append([]string{}, flagValues...)
}

// OverrideToggle replaces the configured value with the toggle value when the flag was set explicitly.
func OverrideToggle(flagSet *pflag.FlagSet, flagName string, target *bool) error {
	if flagSet == nil || target == nil || !flagSet.Changed(flagName) {
		return nil
	}
	flagValue, flagError := flagSet.GetBool(flagName)
	if flagError != nil {
		return flagError
	}
	*target = flagValue
	return nil
}
