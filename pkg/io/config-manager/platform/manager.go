package configmanager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/opendatahub-io/maasctl/pkg/apis/platform/v1alpha1"
	"github.com/opendatahub-io/maasctl/pkg/envvar"
	configmanagerinterface "github.com/opendatahub-io/maasctl/pkg/io/config-manager"
	"github.com/opendatahub-io/maasctl/pkg/notify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when the merged configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigFileName is the base name of the configuration file, without extension.
const ConfigFileName = "maasctl"

// ConfigManager loads v1alpha1.Platform configurations.
type ConfigManager struct {
	Viper           *viper.Viper
	Config          *v1alpha1.Platform
	Writer          io.Writer
	command         *cobra.Command
	flagKeys        map[string]string
	configLoaded    bool
	configFileFound bool
}

var _ configmanagerinterface.ConfigManager[v1alpha1.Platform] = (*ConfigManager)(nil)

// InitializeViper returns a viper instance that looks for maasctl.yaml in
// the working directory and in ~/.config/maasctl, with every environment
// variable of Bindings bound.
func InitializeViper() *viper.Viper {
	viperInstance := viper.New()
	viperInstance.SetConfigName(ConfigFileName)
	viperInstance.SetConfigType("yaml")
	viperInstance.AddConfigPath(".")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		viperInstance.AddConfigPath(filepath.Join(homeDir, ".config", ConfigFileName))
	}

	for _, binding := range Bindings() {
		// The key is always non-empty, so BindEnv cannot fail.
		_ = viperInstance.BindEnv(binding.Key, EnvPrefix+binding.Env, binding.Env)
	}

	return viperInstance
}

// NewConfigManager creates a configuration manager writing notifications to writer.
func NewConfigManager(writer io.Writer) *ConfigManager {
	return &ConfigManager{
		Viper:    InitializeViper(),
		Config:   v1alpha1.NewPlatform(),
		Writer:   writer,
		flagKeys: map[string]string{},
	}
}

// NewCommandConfigManager constructs a ConfigManager whose flag bindings come
// from cmd. Flags are bound lazily at Load time, once cobra has merged the
// persistent flags of the parents.
func NewCommandConfigManager(cmd *cobra.Command) *ConfigManager {
	manager := NewConfigManager(cmd.OutOrStdout())
	manager.command = cmd

	return manager
}

// MapFlag binds flagName to key instead of the default binding, for commands
// where a generic flag such as --namespace means something specific.
func (m *ConfigManager) MapFlag(flagName, key string) {
	m.flagKeys[flagName] = key
}

// SetConfigFile reads path instead of searching for maasctl.yaml.
func (m *ConfigManager) SetConfigFile(path string) {
	if path != "" {
		m.Viper.SetConfigFile(path)
	}
}

// BindFlags binds every flag of flags that has a configuration key.
func (m *ConfigManager) BindFlags(flags *pflag.FlagSet) error {
	keys := make(map[string]string, len(m.flagKeys))

	for _, binding := range Bindings() {
		if binding.Flag != "" {
			keys[binding.Flag] = binding.Key
		}
	}

	for flagName, key := range m.flagKeys {
		keys[flagName] = key
	}

	for flagName, key := range keys {
		flag := flags.Lookup(flagName)
		if flag == nil {
			continue
		}

		err := m.Viper.BindPFlag(key, flag)
		if err != nil {
			return fmt.Errorf("bind flag --%s: %w", flagName, err)
		}
	}

	return nil
}

// invalid reports a configuration error and marks it fatal.
func (m *ConfigManager) invalid(opts configmanagerinterface.LoadOptions, err error) error {
	if !opts.Silent {
		notify.Errorf(m.Writer, "%v", err)
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}

// Load merges defaults, the config file, the environment and flags, then
// validates the result. Later calls return the cached configuration.
func (m *ConfigManager) Load(opts configmanagerinterface.LoadOptions) (*v1alpha1.Platform, error) {
	if m.configLoaded {
		return m.Config, nil
	}

	if m.command != nil {
		if configFile, _ := m.command.Flags().GetString("config"); configFile != "" {
			m.SetConfigFile(configFile)
		}

		err := m.BindFlags(m.command.Flags())
		if err != nil {
			return nil, err
		}
	}

	if !opts.IgnoreConfigFile {
		err := m.readConfig(opts.Silent)
		if err != nil {
			return nil, err
		}
	}

	err := m.Viper.Unmarshal(m.Config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)))
	if err != nil {
		return nil, m.invalid(opts, fmt.Errorf("failed to unmarshal configuration: %w", err))
	}

	m.warnUnresolvedEnvVars(opts.Silent)
	m.Config.ExpandEnvVars()
	m.Config.SetDefaults()

	err = m.Config.Validate()
	if err != nil {
		return nil, m.invalid(opts, err)
	}

	if !opts.Silent {
		notify.SuccessWithTimerf(m.Writer, opts.Timer, "config loaded")
	}

	m.configLoaded = true

	return m.Config, nil
}

// ConfigFileUsed returns the path of the file that was read, or "".
func (m *ConfigManager) ConfigFileUsed() string {
	if !m.configFileFound {
		return ""
	}

	return m.Viper.ConfigFileUsed()
}

func (m *ConfigManager) readConfig(silent bool) error {
	err := m.Viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}

		return nil
	}

	m.configFileFound = true

	if !silent {
		notify.Activityf(m.Writer, "'%s' found", m.Viper.ConfigFileUsed())
	}

	return nil
}

func (m *ConfigManager) warnUnresolvedEnvVars(silent bool) {
	if silent {
		return
	}

	for _, binding := range Bindings() {
		raw := m.Viper.GetString(binding.Key)
		for _, name := range envvar.Unresolved(raw) {
			notify.Warningf(m.Writer, "%s references unset variable %s", binding.Key, name)
		}
	}
}
