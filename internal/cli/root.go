// Package cli provides the command-line interface for the price monitor.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"price-monitor/internal/config"
	"price-monitor/internal/logging"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	ConfigDir string
}

// NewRootCmd creates the root command for the CLI. Configuration is loaded
// after flag parsing so --config can point at another directory.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Price monitor - threshold alerts over live quotes",
		Long: `Price monitor polls last-traded prices for a watch-list of symbols,
prints a rolling price table and raises an alert when a price or its
percentage change crosses a threshold you set.

Use 'monitor run AAPL MSFT' for the terminal front-end or 'monitor serve'
for the web dashboard API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			app.Config = cfg
			app.ConfigDir = cfg.Dir

			logCfg := cfg.LogConfig()
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logCfg.Level = "debug"
			}
			app.Logger = logging.NewLoggerWithConfig(logCfg)
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/price-monitor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Price Monitor v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			masked := maskedConfig(app.Config)
			if output.IsJSON() {
				return output.JSON(masked)
			}
			showConfig(output, &masked)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := config.TemplatePath(app.ConfigDir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"dir": app.ConfigDir, "path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Monitor")
	output.Printf("  Poll interval:   %s\n", cfg.Monitor.PollInterval)
	output.Printf("  Fetch timeout:   %s\n", cfg.Monitor.FetchTimeout)
	output.Printf("  History cap:     %d\n", cfg.Monitor.HistoryCap)
	output.Printf("  Timezone:        %s\n", cfg.Monitor.Timezone)
	output.Printf("  Symbols:         %v\n", cfg.Monitor.Symbols)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Name:            %s\n", cfg.Provider.Name)
	output.Printf("  Extended hours:  %v\n", cfg.Provider.ExtendedHours)
	output.Printf("  Exchange:        %s\n", cfg.Provider.Exchange)
	output.Printf("  Breaker:         %d failures, %s cooldown\n", cfg.Provider.BreakerFailures, cfg.Provider.BreakerCooldown)
	output.Printf("  Kite API key:    %s\n", cfg.Credentials.Kite.APIKey)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  Origins:         %v\n", cfg.Server.AllowedOrigins)
	output.Println()

	output.Bold("Export")
	output.Printf("  Directory:       %s\n", cfg.Export.Dir)
	output.Printf("  Format:          %s\n", cfg.Export.Format)
	output.Printf("  Schedule:        %s\n", cfg.Export.Schedule)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:         %v\n", cfg.Notifications.Enabled)
	output.Printf("  Bell:            %v\n", cfg.Notifications.Bell)
	output.Printf("  Desktop:         %v\n", cfg.Notifications.Desktop)
	output.Printf("  Webhook:         %v\n", cfg.Notifications.Webhook.Enabled)
	output.Printf("  Telegram:        %v\n", cfg.Notifications.Telegram.Enabled)
}
