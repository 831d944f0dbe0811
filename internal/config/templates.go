package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Market Scanner Configuration

[engine]
# User identifier attached to client-generated alerts
user_id = "local"
# Recomputation debounce window after a price tick (e.g. "500ms")
debounce_window = "500ms"
# Timeout for one scan document fetch pass
fetch_timeout = "10s"

[feed]
# Live price feed websocket URL
# The feed API key is read from the SCANNER_FEED_KEY environment variable.
url = ""
# Keepalive ping interval
ping_interval = "45s"

[documents]
# Scan document source: "http" or "store"
source = "store"
# Base URL for the http source
base_url = ""
# Per-document fetch timeout
timeout = "10s"

[ui]
# Enable colored output
color_enabled = true
# Time format
time_format = "15:04:05"

[notifications]
# Enable notifications
enabled = false

[notifications.webhook]
enabled = false
url = ""
`

const rulesTemplate = `# Market Scanner Rules
# Absent keys keep their defaults: toggles default to on, and an absent
# active_filters permits every sector. An EMPTY active_filters list blocks
# every sector instead, so only set it when you mean it.

[up]
# Alert on upward moves of at least this percent (0 disables the check)
percent_threshold = 0.0
# Alert on upward moves of at least this dollar amount (0 disables the check)
dollar_threshold = 0.0

[down]
percent_threshold = 0.0
dollar_threshold = 0.0

# Minimum live price for mover alerts (0 disables the floor)
min_price = 0.0
# Minimum live price for 52-week high/low alerts
hilo_min_price = 0.0

# movers_enabled = true
# hilo_enabled = true
# personal_enabled = true
# exclude_portfolio = true

# active_filters = ["TECH", "HEALTH"]
# hidden_sectors = ["CRYPTO"]
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateRules(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "rules.toml")
	if err := os.WriteFile(path, []byte(rulesTemplate), 0644); err != nil {
		return fmt.Errorf("writing rules template: %w", err)
	}

	return fmt.Errorf("rules file not found, created template at %s", path)
}
