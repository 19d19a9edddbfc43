// Package settings loads the user's watch lists of currencies and stocks.
package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"finreport/internal/core"
)

// Default is the settings file looked up in the working directory.
const Default = "user_settings.json"

type Settings struct {
	Currencies []string
	Stocks     []string
}

type file struct {
	Currencies *[]string `json:"user_currencies"`
	Stocks     *[]string `json:"user_stocks"`
}

// Load reads path (Default when empty). A missing file, malformed JSON or
// a missing key all fail with core.ErrSettings.
func Load(path string) (Settings, error) {
	if path == "" {
		path = Default
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %v", core.ErrSettings, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", core.ErrSettings, path, err)
	}
	if f.Currencies == nil {
		return Settings{}, fmt.Errorf("%w: %s: missing user_currencies", core.ErrSettings, path)
	}
	if f.Stocks == nil {
		return Settings{}, fmt.Errorf("%w: %s: missing user_stocks", core.ErrSettings, path)
	}
	return Settings{Currencies: *f.Currencies, Stocks: *f.Stocks}, nil
}
