package driving

import "github.com/custodia-labs/chronicle/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetValue sets a single dotted key ("fetch.page_delay_ms") from its
	// string form, validating the value for that key.
	SetValue(key, value string) error

	// SetToken stores the auth token and its type.
	SetToken(token string, tokenType domain.TokenType) error

	// ClearToken removes the stored token.
	ClearToken() error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Keys returns every settable key with its current value, sorted.
	Keys() ([]SettingEntry, error)
}

// SettingEntry is one key/value pair for display.
type SettingEntry struct {
	Key    string
	Value  string
	Secret bool
}
