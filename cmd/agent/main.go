package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/syft-status-agent/internal/agent"
	"github.com/openmined/syft-status-agent/internal/agent/config"
	"github.com/openmined/syft-status-agent/internal/utils"
	"github.com/openmined/syft-status-agent/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
)

var cyan = color.New(color.FgHiCyan, color.Bold).SprintFunc()

var rootCmd = &cobra.Command{
	Use:     "syft-status",
	Short:   "Mirror SyftBox sync status onto local files as Finder labels",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Path:      viper.ConfigFileUsed(),
			Email:     viper.GetString("email"),
			DataDir:   viper.GetString("data_dir"),
			ClientURL: viper.GetString("client_url"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true
		fmt.Fprintln(cmd.OutOrStdout(), cyan(version.ShortWithApp()))

		a, err := agent.New(cfg)
		if err != nil {
			return err
		}

		return a.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("datadir", "d", "", "SyftBox data directory")
	rootCmd.Flags().StringP("client-url", "u", config.DefaultClientURL, "SyftBox daemon control plane URL")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "SyftBox config file")
}

func main() {
	setupLogging()

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	fileHandler := slog.NewTextHandler(&lumberjack.Logger{
		Filename:   config.DefaultLogFilePath,
		MaxSize:    10, // MB
		MaxBackups: 3,
		Compress:   true,
	}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	logger := slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler))
	slog.SetDefault(logger)
}

func loadConfig(cmd *cobra.Command) error {
	// .env next to the config file may carry overrides
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		_ = godotenv.Load(filepath.Join(filepath.Dir(configFilePath), ".env"))
		viper.SetConfigFile(configFilePath)
	} else {
		_ = godotenv.Load(filepath.Join(home, ".syftbox", ".env"))
		viper.AddConfigPath(filepath.Join(home, ".syftbox"))        // Then check .syftbox
		viper.AddConfigPath(filepath.Join(home, ".config/syftbox")) // Then check .config/syftbox
		viper.SetConfigName(configFileName)                         // Name of config file (without extension)
		viper.SetConfigType("json")
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	viper.BindPFlag("data_dir", cmd.Flags().Lookup("datadir"))
	viper.BindPFlag("client_url", cmd.Flags().Lookup("client-url"))

	// Set up environment variables
	viper.SetEnvPrefix("SYFTBOX")
	viper.AutomaticEnv()

	return nil
}
