package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "charrnn",
	Short: "Preprocess word vectors and decode words character by character",
	Long: `charrnn reconstructs words one character at a time from fixed-size
word embeddings using a single-layer recurrent decoder.

Examples:
  # Turn a glove text file into the two vocabulary artifacts
  charrnn preprocess --glove glove.6B.50d.txt --out vecs/glove50d

  # Teacher-forced loss over the vocabulary with a freshly built model
  charrnn eval --tables vecs/glove50d

  # Greedy-decode words from sampled vocabulary embeddings
  charrnn generate --tables vecs/glove50d --count 5`,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (e.g. charrnn.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "logging level (debug, info, warn, error)")
	mustBindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("log.level", "info")
	viper.SetDefault("model.mode", "GRU")
	viper.SetDefault("model.hidden_size", 50)
	viper.SetDefault("model.char_embedding_size", 50)
	viper.SetDefault("model.activation", "relu")
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("charrnn")
	}

	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("CHARRNN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file [%s]: %v\n", viper.ConfigFileUsed(), err)
		os.Exit(1)
	}
}

// buildLogger constructs the process logger from the configured level.
func buildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
