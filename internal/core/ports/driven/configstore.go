package driven

// ConfigStore provides access to application configuration.
// Keys are dot-separated ("classifier.use_remote"); implementations
// handle persistence (TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" if missing.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 if missing.
	GetInt(key string) int

	// GetBool retrieves a boolean value, or false if missing.
	GetBool(key string) bool

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Delete removes a key and persists immediately.
	Delete(key string) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
