package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Price Monitor Configuration

[monitor]
# Time between the start of two poll cycles
poll_interval = "10s"
# Upper bound on one batch fetch
fetch_timeout = "5s"
# Observations kept in memory before the oldest is evicted
history_cap = 500
# Timezone used for the table, date lines and exports
timezone = "America/New_York"
# Width of each price column in the terminal table
column_width = 12
# Symbols tracked at startup
symbols = []

[provider]
# Price backend: "yahoo", "kite" or "simulated"
name = "yahoo"
# Exchange prefix for kite instruments (NSE, BSE)
exchange = "NSE"
# Use pre/post market prices from yahoo outside regular hours
extended_hours = true
# Consecutive batch failures before the breaker opens (0 disables)
breaker_failures = 5
# How long the breaker stays open
breaker_cooldown = "30s"

[simulated]
seed = 0
volatility = 0.5
start_price = 100.0

[server]
addr = ":8080"
allowed_origins = ["*"]
# Messages buffered per websocket client
ws_buffer = 64

[export]
dir = "."
# Default format: csv, xlsx or sqlite
format = "csv"
# Cron schedule for periodic exports, e.g. "@every 1h" (empty disables)
schedule = ""

[notifications]
# Enable alert notifications
enabled = false
# Ring the terminal bell on alerts
bell = true
# Show desktop notifications (notify-send / osascript)
desktop = false

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[logging]
level = "info"
console = true
file = true
max_size = 100
max_backups = 7
max_age = 30
`

const credentialsTemplate = `# Price Monitor Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[kite]
api_key = ""
api_secret = ""
access_token = ""
`

// TemplatePath returns where the config file lives in configDir.
func TemplatePath(configDir string) string {
	return filepath.Join(configDir, "config.toml")
}

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := TemplatePath(configDir)
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
