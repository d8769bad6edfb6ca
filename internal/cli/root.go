// Package cli implements the siance command line.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/siance/internal/logging"
	"github.com/ppiankov/siance/internal/model"
)

// Version is overridden at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "siance",
	Short: "Siance - structure and topics of inspection follow-up letters",
	Long: `Siance reads inspection follow-up letters and extracts their structure:

- the synthesis, corrective demands (A), information demands (B) and
  observations zones
- the demand blocks inside each demand zone
- the topics of every demand, predicted sentence by sentence with a
  hierarchical classifier over sentence embeddings

Reports are written as JSON and Markdown.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "siance %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.siance/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and SIANCE_* variables
func initConfig() {
	// A missing .env is the common case
	_ = godotenv.Load()

	if err := setDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".siance"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SIANCE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("embedding.api_key", "SIANCE_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("embedding.base_url", "SIANCE_EMBEDDING_BASE_URL", "OLLAMA_BASE_URL")
	// keys omitted from the defaults when empty
	for _, key := range []string{"embedding.dimensions", "fetch.http_proxy", "fetch.https_proxy", "metrics.addr"} {
		_ = viper.BindEnv(key)
	}

	if err := viper.MergeInConfig(); err == nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// setDefaults registers every key of the default config so that
// environment variables can override keys absent from the config file
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	v.SetConfigType("yaml")
	return v.MergeConfig(bytes.NewReader(data))
}

// loadConfig decodes the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the config
func newLogger(cfg *model.Config) (logging.Logger, error) {
	level := cfg.Log.Level
	if cfg.Output.Verbose && (level == "" || level == "info") {
		level = "debug"
	}
	return logging.New(logging.Config{Level: level, Format: cfg.Log.Format})
}
