package domain

import "time"

const unknownDescription = "Unknown"

// TokenType selects how the auth token is presented to the API.
type TokenType string

// Supported token types.
const (
	// TokenTypeUser sends the token verbatim (a user account token).
	TokenTypeUser TokenType = "user"

	// TokenTypeBot sends "Bot <token>".
	TokenTypeBot TokenType = "bot"

	// TokenTypeBearer sends "Bearer <token>" (an OAuth2 access token).
	TokenTypeBearer TokenType = "bearer"
)

// IsValid returns true if the token type is recognised.
func (t TokenType) IsValid() bool {
	switch t {
	case TokenTypeUser, TokenTypeBot, TokenTypeBearer:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t TokenType) String() string {
	return string(t)
}

// Description returns a human-readable description of the token type.
func (t TokenType) Description() string {
	switch t {
	case TokenTypeUser:
		return "User token"
	case TokenTypeBot:
		return "Bot token"
	case TokenTypeBearer:
		return "OAuth2 bearer token"
	default:
		return unknownDescription
	}
}

// AIProvider identifies the remote classifier backend.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is any OpenAI-compatible chat completions API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// ArchiveBackend selects where record files are written.
type ArchiveBackend string

// Available archive backends.
const (
	ArchiveBackendFS ArchiveBackend = "fs"
	ArchiveBackendS3 ArchiveBackend = "s3"
)

// IsValid returns true if the backend is recognised.
func (b ArchiveBackend) IsValid() bool {
	return b == ArchiveBackendFS || b == ArchiveBackendS3
}

// String returns the string representation.
func (b ArchiveBackend) String() string {
	return string(b)
}

// DiscordSettings holds API access configuration.
type DiscordSettings struct {
	Token     string
	TokenType TokenType
	APIBase   string
}

// HasToken returns true if a token is configured.
func (d DiscordSettings) HasToken() bool {
	return d.Token != ""
}

// S3Settings holds object storage configuration for the s3 backend.
type S3Settings struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// IsConfigured returns true if enough is set to connect.
func (s S3Settings) IsConfigured() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// ArchiveSettings holds the two archive roots.
type ArchiveSettings struct {
	Backend ArchiveBackend

	// DumpRoot receives bulk dump output.
	DumpRoot string

	// CollectRoot receives individually collected live messages.
	CollectRoot string

	S3 S3Settings
}

// ClassifierSettings holds remote classifier configuration.
type ClassifierSettings struct {
	// UseRemote enables the remote fallback for items no local rule matches.
	UseRemote bool

	Provider AIProvider
	BaseURL  string
	Model    string
	APIKey   string

	// TimeoutSeconds is the hard per-call timeout.
	TimeoutSeconds int

	// MaxChars bounds how much of the body is sent.
	MaxChars int
}

// Timeout returns the per-call timeout.
func (c ClassifierSettings) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IsConfigured returns true if the provider is set up.
func (c ClassifierSettings) IsConfigured() bool {
	return c.Provider.IsValid() && c.Model != ""
}

// FetchSettings holds pagination pacing.
type FetchSettings struct {
	PageSize               int
	PageDelayMS            int
	ContainerDelayMS       int
	ScopeDelayMS           int
	CooldownMarginMS       int
	DefaultCooldownSeconds int
	MaxMessages            int
	RequestsPerSecond      int
}

// PageDelay returns the fixed pause between successful pages.
func (f FetchSettings) PageDelay() time.Duration {
	return time.Duration(f.PageDelayMS) * time.Millisecond
}

// ContainerDelay returns the pause between containers.
func (f FetchSettings) ContainerDelay() time.Duration {
	return time.Duration(f.ContainerDelayMS) * time.Millisecond
}

// ScopeDelay returns the pause between scopes.
func (f FetchSettings) ScopeDelay() time.Duration {
	return time.Duration(f.ScopeDelayMS) * time.Millisecond
}

// CooldownMargin returns the safety margin added to server cool-downs.
func (f FetchSettings) CooldownMargin() time.Duration {
	return time.Duration(f.CooldownMarginMS) * time.Millisecond
}

// DefaultCooldown returns the wait used when the server gives none.
func (f FetchSettings) DefaultCooldown() time.Duration {
	return time.Duration(f.DefaultCooldownSeconds) * time.Second
}

// ServerSettings holds the HTTP control plane configuration.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Discord    DiscordSettings
	Archive    ArchiveSettings
	Classifier ClassifierSettings
	Fetch      FetchSettings
	Server     ServerSettings
}

// Default values.
const (
	DefaultAPIBase           = "https://discord.com/api/v9"
	DefaultClassifierBaseURL = "https://text.pollinations.ai/v1"
	DefaultClassifierModel   = "openai"
	DefaultOllamaBaseURL     = "http://localhost:11434"
	DefaultOllamaModel       = "llama3.2"
	DefaultDumpRoot          = "~/DiscordServerDumps"
	DefaultCollectRoot       = "~/DiscordMessages"
	DefaultServerAddr        = "127.0.0.1:7420"
)

// DefaultAppSettings returns settings with sensible defaults.
// The remote classifier is off until the user enables it.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Discord: DiscordSettings{
			TokenType: TokenTypeUser,
			APIBase:   DefaultAPIBase,
		},
		Archive: ArchiveSettings{
			Backend:     ArchiveBackendFS,
			DumpRoot:    DefaultDumpRoot,
			CollectRoot: DefaultCollectRoot,
			S3:          S3Settings{UseSSL: true},
		},
		Classifier: ClassifierSettings{
			UseRemote:      false,
			Provider:       AIProviderOpenAI,
			BaseURL:        DefaultClassifierBaseURL,
			Model:          DefaultClassifierModel,
			TimeoutSeconds: 5,
			MaxChars:       500,
		},
		Fetch: FetchSettings{
			PageSize:               100,
			PageDelayMS:            300,
			ContainerDelayMS:       200,
			ScopeDelayMS:           500,
			CooldownMarginMS:       500,
			DefaultCooldownSeconds: 5,
			MaxMessages:            0,
			RequestsPerSecond:      45,
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
	}
}

// AllAIProviders returns providers usable as remote classifiers.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderOllama}
}

// DefaultModels returns the default model for each provider.
func DefaultModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: DefaultClassifierModel,
		AIProviderOllama: DefaultOllamaModel,
	}
}
