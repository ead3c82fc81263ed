package cli

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	workflowcmd "github.com/temirov/cloudchores/cmd/cli/workflow"
	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/bucketmigrate"
	"github.com/temirov/cloudchores/internal/registrymanage"
)

const (
	internalTestRunIdentifierConstant = "run-7d1c"
	internalTestConfigurationConstant = `common:
  log_level: debug
tools:
  bucket_migrate:
    source_bucket: legacy-assets
    target_bucket: assets-archive
    retry:
      base_delay: 50ms
  account_provision:
    username: build-auditor
    groups: auditors, readers
`
)

func newInitializedApplication(testInstance *testing.T, configurationContent string) (*Application, *cobra.Command) {
	testInstance.Helper()
	application := NewApplicationWithDependencies(ApplicationDependencies{
		RunIdentifierGenerator: func() string { return internalTestRunIdentifierConstant },
	})
	if len(configurationContent) > 0 {
		configurationPath := filepath.Join(testInstance.TempDir(), "config.yaml")
		require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationContent), 0o600))
		application.configurationFilePath = configurationPath
	}
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, application.initializeConfiguration(rootCommand))
	return application, rootCommand
}

func TestInitializeConfigurationAppliesEmbeddedDefaults(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	application, _ := newInitializedApplication(testInstance, "")

	require.Equal(testInstance, "info", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", application.configuration.Common.LogFormat)
	require.Equal(testInstance, bucketmigrate.DefaultCommandConfiguration(), application.configuration.Tools.BucketMigrate)
	require.Equal(testInstance, accountprovision.DefaultCommandConfiguration(), application.configuration.Tools.AccountProvision)
	require.Equal(testInstance, registrymanage.DefaultCommandConfiguration(), application.configuration.Tools.RegistryManage)
	require.Equal(testInstance, workflowcmd.DefaultCommandConfiguration(), application.configuration.Tools.Workflow)
}

func TestInitializeConfigurationLayersFileAndEnvironment(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	testInstance.Setenv("CLOUDCHORES_TOOLS_BUCKET_MIGRATE_TARGET_BUCKET", "assets-from-env")
	testInstance.Setenv("CLOUDCHORES_TOOLS_ACCOUNT_PROVISION_ACCESS_LEVEL", "developer")

	application, _ := newInitializedApplication(testInstance, internalTestConfigurationConstant)

	bucketConfiguration := application.configuration.Tools.BucketMigrate
	require.Equal(testInstance, "legacy-assets", bucketConfiguration.SourceBucket)
	require.Equal(testInstance, "assets-from-env", bucketConfiguration.TargetBucket)
	require.Equal(testInstance, 50*time.Millisecond, bucketConfiguration.Retry.BaseDelay)
	require.Equal(testInstance, 5*time.Second, bucketConfiguration.Retry.MaxDelay)
	require.True(testInstance, bucketConfiguration.PreserveACL)

	provisionConfiguration := application.configuration.Tools.AccountProvision
	require.Equal(testInstance, "build-auditor", provisionConfiguration.Username)
	require.Equal(testInstance, "developer", provisionConfiguration.AccessLevel)
	require.Equal(testInstance, []string{"auditors", "readers"}, provisionConfiguration.Groups)
	require.Equal(testInstance, "debug", application.configuration.Common.LogLevel)
}

func TestInitializeConfigurationReadsEveryCredentialKeyFromEnvironment(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	environment := map[string]string{
		"CLOUDCHORES_TOOLS_ACCOUNT_PROVISION_GROUPS":                       "auditors, readers",
		"CLOUDCHORES_TOOLS_ACCOUNT_PROVISION_CREDENTIALS_SESSION_NAME":     "provision-session",
		"CLOUDCHORES_TOOLS_ACCOUNT_PROVISION_CREDENTIALS_ENDPOINT_URL":     "http://localhost:4566",
		"CLOUDCHORES_TOOLS_BUCKET_MIGRATE_SOURCE_ACCESS_KEY_ID_SOURCE":     "env:LEGACY_KEY_ID",
		"CLOUDCHORES_TOOLS_BUCKET_MIGRATE_SOURCE_SECRET_ACCESS_KEY_SOURCE": "env:LEGACY_SECRET",
		"CLOUDCHORES_TOOLS_BUCKET_MIGRATE_SOURCE_SESSION_TOKEN_SOURCE":     "file:/run/secrets/token",
		"CLOUDCHORES_TOOLS_BUCKET_MIGRATE_TARGET_EXTERNAL_ID":              "archive-external-id",
		"CLOUDCHORES_TOOLS_BUCKET_MIGRATE_TARGET_USE_PATH_STYLE":           "true",
		"CLOUDCHORES_TOOLS_BUCKET_MIGRATE_TARGET_ROLE_ARN":                 "arn:aws:iam::123456789012:role/archive",
		"CLOUDCHORES_TOOLS_REGISTRY_MANAGE_RETENTION_DAYS":                 "14",
		"CLOUDCHORES_TOOLS_REGISTRY_MANAGE_CREDENTIALS_REGION":             "eu-west-1",
	}
	for name, value := range environment {
		testInstance.Setenv(name, value)
	}

	application, _ := newInitializedApplication(testInstance, "")

	provisionConfiguration := application.configuration.Tools.AccountProvision
	require.Equal(testInstance, []string{"auditors", "readers"}, provisionConfiguration.Groups)
	require.Equal(testInstance, "provision-session", provisionConfiguration.Credentials.SessionName)
	require.Equal(testInstance, "http://localhost:4566", provisionConfiguration.Credentials.EndpointURL)

	bucketConfiguration := application.configuration.Tools.BucketMigrate
	require.Equal(testInstance, "env:LEGACY_KEY_ID", bucketConfiguration.Source.AccessKeyIDSource)
	require.Equal(testInstance, "env:LEGACY_SECRET", bucketConfiguration.Source.SecretAccessKeySource)
	require.Equal(testInstance, "file:/run/secrets/token", bucketConfiguration.Source.SessionTokenSource)
	require.Equal(testInstance, "archive-external-id", bucketConfiguration.Target.ExternalID)
	require.True(testInstance, bucketConfiguration.Target.UsePathStyle)
	require.Equal(testInstance, "arn:aws:iam::123456789012:role/archive", bucketConfiguration.Target.RoleARN)

	registryConfiguration := application.configuration.Tools.RegistryManage
	require.Equal(testInstance, 14, registryConfiguration.RetentionDays)
	require.Equal(testInstance, "eu-west-1", registryConfiguration.Credentials.Region)
}

func TestEmbeddedDefaultConfigurationDeclaresEveryKey(testInstance *testing.T) {
	content, _ := EmbeddedDefaultConfiguration()
	var declared map[string]any
	require.NoError(testInstance, yaml.Unmarshal(content, &declared))

	for _, keyPath := range configurationKeyPaths(reflect.TypeOf(ApplicationConfiguration{}), nil) {
		current := any(declared)
		for _, segment := range keyPath {
			section, isSection := current.(map[string]any)
			require.Truef(testInstance, isSection, "%v is not a section", keyPath)
			value, present := section[segment]
			require.Truef(testInstance, present, "%v is missing from the embedded defaults", keyPath)
			current = value
		}
	}
}

// configurationKeyPaths lists the mapstructure key path of every leaf field.
func configurationKeyPaths(configurationType reflect.Type, prefix []string) [][]string {
	var keyPaths [][]string
	for fieldIndex := 0; fieldIndex < configurationType.NumField(); fieldIndex++ {
		field := configurationType.Field(fieldIndex)
		keyPath := append(append([]string{}, prefix...), field.Tag.Get("mapstructure"))
		if field.Type.Kind() == reflect.Struct {
			keyPaths = append(keyPaths, configurationKeyPaths(field.Type, keyPath)...)
			continue
		}
		keyPaths = append(keyPaths, keyPath)
	}
	return keyPaths
}

func TestInitializeConfigurationPublishesRunIdentifier(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	application, rootCommand := newInitializedApplication(testInstance, "")

	runIdentifier, found := application.commandContextAccessor.RunIdentifier(rootCommand.Context())
	require.True(testInstance, found)
	require.Equal(testInstance, internalTestRunIdentifierConstant, runIdentifier)
	require.Equal(testInstance, internalTestRunIdentifierConstant, application.runIdentifier)
}

func TestInitializeConfigurationHonorsLogFlags(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "warn"))
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, "console"))

	require.NoError(testInstance, application.initializeConfiguration(rootCommand))
	require.Equal(testInstance, "warn", application.configuration.Common.LogLevel)
	require.Equal(testInstance, "console", application.configuration.Common.LogFormat)
}

func TestInitializeConfigurationRejectsUnknownLogLevel(testInstance *testing.T) {
	changeWorkingDirectory(testInstance, testInstance.TempDir())
	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())
	require.NoError(testInstance, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "verbose"))

	initializationError := application.initializeConfiguration(rootCommand)
	require.Error(testInstance, initializationError)
	require.Contains(testInstance, initializationError.Error(), "unsupported log level")
}

func TestEmbeddedDefaultConfigurationReturnsCopy(testInstance *testing.T) {
	firstContent, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, configurationTypeConstant, configurationType)
	require.NotEmpty(testInstance, firstContent)
	firstContent[0] = '#'

	secondContent, _ := EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, byte('#'), secondContent[0])
}

// changeWorkingDirectory switches the process working directory for the duration of the test.
func changeWorkingDirectory(testInstance *testing.T, directory string) {
	testInstance.Helper()
	originalDirectory, getwdError := os.Getwd()
	require.NoError(testInstance, getwdError)
	require.NoError(testInstance, os.Chdir(directory))
	testInstance.Cleanup(func() {
		require.NoError(testInstance, os.Chdir(originalDirectory))
	})
}
