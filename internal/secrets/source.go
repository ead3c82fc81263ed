package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	pathutils "github.com/temirov/cloudchores/internal/utils/path"
)

const (
	sourceSeparatorConstant                    = ":"
	environmentSourceTypeValueConstant         = "env"
	fileSourceTypeValueConstant                = "file"
	sourceMissingErrorMessageConstant          = "secret source must be provided"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "secret file path must be provided"
	environmentSecretMissingTemplateConstant   = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read secret file %s: %w"
	fileSecretEmptyErrorTemplateConstant       = "secret file %s is empty"
	unsupportedSourceTemplateConstant          = "unsupported secret source type %q"
)

// SourceType enumerates the supported secret retrieval mechanisms.
type SourceType string

// Secret source type enumerations.
const (
	SourceTypeEnvironment SourceType = SourceType(environmentSourceTypeValueConstant)
	SourceTypeFile        SourceType = SourceType(fileSourceTypeValueConstant)
)

// SourceConfiguration specifies how to locate secret material.
type SourceConfiguration struct {
	Type      SourceType
	Reference string
}

// Resolver retrieves secret material from configured sources.
type Resolver interface {
	Resolve(resolutionContext context.Context, source SourceConfiguration, options ...ValueOption) (*Value, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// NewResolver creates a secret resolver with optional dependency overrides.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader) Resolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	return &resolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
		homeExpander:      pathutils.NewHomeExpander(),
	}
}

// ParseSource interprets textual secret source declarations such as env:NAME or file:/path.
// A bare value names an environment variable.
func ParseSource(sourceValue string) (SourceConfiguration, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return SourceConfiguration{}, errors.New(sourceMissingErrorMessageConstant)
	}

	components := strings.SplitN(trimmedValue, sourceSeparatorConstant, 2)
	if len(components) == 1 {
		return SourceConfiguration{Type: SourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentSourceTypeValueConstant:
		if len(reference) == 0 {
			return SourceConfiguration{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return SourceConfiguration{Type: SourceTypeEnvironment, Reference: reference}, nil
	case fileSourceTypeValueConstant:
		if len(reference) == 0 {
			return SourceConfiguration{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return SourceConfiguration{Type: SourceTypeFile, Reference: reference}, nil
	default:
		return SourceConfiguration{}, fmt.Errorf(unsupportedSourceTemplateConstant, sourceType)
	}
}

type resolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	homeExpander      *pathutils.HomeExpander
}

// Resolve reads the secret without trimming interior characters; surrounding whitespace and
// trailing newlines are removed because file and environment injection commonly add them.
func (resolver *resolver) Resolve(resolutionContext context.Context, source SourceConfiguration, options ...ValueOption) (*Value, error) {
	if contextError := resolutionContext.Err(); contextError != nil {
		return nil, contextError
	}

	switch source.Type {
	case SourceTypeEnvironment:
		rawValue, found := resolver.environmentLookup(source.Reference)
		trimmedValue := strings.TrimSpace(rawValue)
		if !found || len(trimmedValue) == 0 {
			return nil, fmt.Errorf(environmentSecretMissingTemplateConstant, source.Reference)
		}
		return NewValue(trimmedValue, options...), nil
	case SourceTypeFile:
		filePath, expandError := resolver.homeExpander.Expand(source.Reference)
		if expandError != nil {
			return nil, expandError
		}
		contents, readError := resolver.fileReader(filePath)
		if readError != nil {
			return nil, fmt.Errorf(fileReadErrorTemplateConstant, filePath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		clearBytes(contents)
		if len(trimmedValue) == 0 {
			return nil, fmt.Errorf(fileSecretEmptyErrorTemplateConstant, filePath)
		}
		return NewValue(trimmedValue, options...), nil
	default:
		return nil, fmt.Errorf(unsupportedSourceTemplateConstant, source.Type)
	}
}
