package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyDiscordToken     = "discord.token"
	KeyDiscordTokenType = "discord.token_type"
	KeyDiscordAPIBase   = "discord.api_base"

	KeyArchiveBackend     = "archive.backend"
	KeyArchiveDumpRoot    = "archive.dump_root"
	KeyArchiveCollectRoot = "archive.collect_root"
	KeyS3Endpoint         = "archive.s3.endpoint"
	KeyS3Bucket           = "archive.s3.bucket"
	KeyS3AccessKey        = "archive.s3.access_key"
	KeyS3SecretKey        = "archive.s3.secret_key"
	KeyS3Region           = "archive.s3.region"
	KeyS3UseSSL           = "archive.s3.use_ssl"

	KeyClassifierUseRemote = "classifier.use_remote"
	KeyClassifierProvider  = "classifier.provider"
	KeyClassifierBaseURL   = "classifier.base_url"
	KeyClassifierModel     = "classifier.model"
	KeyClassifierAPIKey    = "classifier.api_key"
	KeyClassifierTimeout   = "classifier.timeout_seconds"
	KeyClassifierMaxChars  = "classifier.max_chars"

	KeyFetchPageSize        = "fetch.page_size"
	KeyFetchPageDelay       = "fetch.page_delay_ms"
	KeyFetchContainerDelay  = "fetch.container_delay_ms"
	KeyFetchScopeDelay      = "fetch.scope_delay_ms"
	KeyFetchCooldownMargin  = "fetch.cooldown_margin_ms"
	KeyFetchDefaultCooldown = "fetch.default_cooldown_seconds"
	KeyFetchMaxMessages     = "fetch.max_messages"
	KeyFetchRPS             = "fetch.requests_per_second"

	KeyServerAddr = "server.addr"
)

type keyKind int

const (
	kindString keyKind = iota
	kindSecret
	kindInt
	kindBool
)

type keySpec struct {
	kind     keyKind
	validate func(string) error
}

// settableKeys lists every key accepted by SetValue.
var settableKeys = map[string]keySpec{
	KeyDiscordToken:     {kind: kindSecret},
	KeyDiscordTokenType: {kind: kindString, validate: oneOf(domain.TokenTypeUser, domain.TokenTypeBot, domain.TokenTypeBearer)},
	KeyDiscordAPIBase:   {kind: kindString, validate: httpURL},

	KeyArchiveBackend:     {kind: kindString, validate: oneOf(domain.ArchiveBackendFS, domain.ArchiveBackendS3)},
	KeyArchiveDumpRoot:    {kind: kindString, validate: nonEmpty},
	KeyArchiveCollectRoot: {kind: kindString, validate: nonEmpty},
	KeyS3Endpoint:         {kind: kindString},
	KeyS3Bucket:           {kind: kindString},
	KeyS3AccessKey:        {kind: kindSecret},
	KeyS3SecretKey:        {kind: kindSecret},
	KeyS3Region:           {kind: kindString},
	KeyS3UseSSL:           {kind: kindBool},

	KeyClassifierUseRemote: {kind: kindBool},
	KeyClassifierProvider:  {kind: kindString, validate: oneOf(domain.AIProviderOpenAI, domain.AIProviderOllama)},
	KeyClassifierBaseURL:   {kind: kindString, validate: httpURL},
	KeyClassifierModel:     {kind: kindString, validate: nonEmpty},
	KeyClassifierAPIKey:    {kind: kindSecret},
	KeyClassifierTimeout:   {kind: kindInt, validate: positive},
	KeyClassifierMaxChars:  {kind: kindInt, validate: positive},

	KeyFetchPageSize:        {kind: kindInt, validate: between(1, 100)},
	KeyFetchPageDelay:       {kind: kindInt, validate: nonNegative},
	KeyFetchContainerDelay:  {kind: kindInt, validate: nonNegative},
	KeyFetchScopeDelay:      {kind: kindInt, validate: nonNegative},
	KeyFetchCooldownMargin:  {kind: kindInt, validate: nonNegative},
	KeyFetchDefaultCooldown: {kind: kindInt, validate: positive},
	KeyFetchMaxMessages:     {kind: kindInt, validate: nonNegative},
	KeyFetchRPS:             {kind: kindInt, validate: nonNegative},

	KeyServerAddr: {kind: kindString, validate: nonEmpty},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings, falling back to defaults
// for anything unset or invalid. Archive roots have "~" expanded.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	tokenType := domain.TokenType(s.getString(KeyDiscordTokenType, d.Discord.TokenType.String()))
	if !tokenType.IsValid() {
		tokenType = d.Discord.TokenType
	}
	backend := domain.ArchiveBackend(s.getString(KeyArchiveBackend, d.Archive.Backend.String()))
	if !backend.IsValid() {
		backend = d.Archive.Backend
	}
	provider := domain.AIProvider(s.getString(KeyClassifierProvider, d.Classifier.Provider.String()))
	if !provider.IsValid() {
		provider = d.Classifier.Provider
	}
	baseURL, model := d.Classifier.BaseURL, d.Classifier.Model
	if provider == domain.AIProviderOllama {
		baseURL, model = domain.DefaultOllamaBaseURL, domain.DefaultOllamaModel
	}

	settings := &domain.AppSettings{
		Discord: domain.DiscordSettings{
			Token:     s.configStore.GetString(KeyDiscordToken),
			TokenType: tokenType,
			APIBase:   s.getString(KeyDiscordAPIBase, d.Discord.APIBase),
		},
		Archive: domain.ArchiveSettings{
			Backend:     backend,
			DumpRoot:    ExpandHome(s.getString(KeyArchiveDumpRoot, d.Archive.DumpRoot)),
			CollectRoot: ExpandHome(s.getString(KeyArchiveCollectRoot, d.Archive.CollectRoot)),
			S3: domain.S3Settings{
				Endpoint:  s.configStore.GetString(KeyS3Endpoint),
				Bucket:    s.configStore.GetString(KeyS3Bucket),
				AccessKey: s.configStore.GetString(KeyS3AccessKey),
				SecretKey: s.configStore.GetString(KeyS3SecretKey),
				Region:    s.configStore.GetString(KeyS3Region),
				UseSSL:    s.getBool(KeyS3UseSSL, d.Archive.S3.UseSSL),
			},
		},
		Classifier: domain.ClassifierSettings{
			UseRemote:      s.getBool(KeyClassifierUseRemote, d.Classifier.UseRemote),
			Provider:       provider,
			BaseURL:        s.getString(KeyClassifierBaseURL, baseURL),
			Model:          s.getString(KeyClassifierModel, model),
			APIKey:         s.configStore.GetString(KeyClassifierAPIKey),
			TimeoutSeconds: s.getInt(KeyClassifierTimeout, d.Classifier.TimeoutSeconds),
			MaxChars:       s.getInt(KeyClassifierMaxChars, d.Classifier.MaxChars),
		},
		Fetch: domain.FetchSettings{
			PageSize:               s.getInt(KeyFetchPageSize, d.Fetch.PageSize),
			PageDelayMS:            s.getInt(KeyFetchPageDelay, d.Fetch.PageDelayMS),
			ContainerDelayMS:       s.getInt(KeyFetchContainerDelay, d.Fetch.ContainerDelayMS),
			ScopeDelayMS:           s.getInt(KeyFetchScopeDelay, d.Fetch.ScopeDelayMS),
			CooldownMarginMS:       s.getInt(KeyFetchCooldownMargin, d.Fetch.CooldownMarginMS),
			DefaultCooldownSeconds: s.getInt(KeyFetchDefaultCooldown, d.Fetch.DefaultCooldownSeconds),
			MaxMessages:            s.getInt(KeyFetchMaxMessages, d.Fetch.MaxMessages),
			RequestsPerSecond:      s.getInt(KeyFetchRPS, d.Fetch.RequestsPerSecond),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(KeyServerAddr, d.Server.Addr),
		},
	}

	return settings, nil
}

// Save persists application settings. Empty secrets are not written,
// so saving never erases a stored credential.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key string
		val any
	}{
		{KeyDiscordTokenType, settings.Discord.TokenType.String()},
		{KeyDiscordAPIBase, settings.Discord.APIBase},
		{KeyArchiveBackend, settings.Archive.Backend.String()},
		{KeyArchiveDumpRoot, settings.Archive.DumpRoot},
		{KeyArchiveCollectRoot, settings.Archive.CollectRoot},
		{KeyS3Endpoint, settings.Archive.S3.Endpoint},
		{KeyS3Bucket, settings.Archive.S3.Bucket},
		{KeyS3Region, settings.Archive.S3.Region},
		{KeyS3UseSSL, settings.Archive.S3.UseSSL},
		{KeyClassifierUseRemote, settings.Classifier.UseRemote},
		{KeyClassifierProvider, settings.Classifier.Provider.String()},
		{KeyClassifierBaseURL, settings.Classifier.BaseURL},
		{KeyClassifierModel, settings.Classifier.Model},
		{KeyClassifierTimeout, settings.Classifier.TimeoutSeconds},
		{KeyClassifierMaxChars, settings.Classifier.MaxChars},
		{KeyFetchPageSize, settings.Fetch.PageSize},
		{KeyFetchPageDelay, settings.Fetch.PageDelayMS},
		{KeyFetchContainerDelay, settings.Fetch.ContainerDelayMS},
		{KeyFetchScopeDelay, settings.Fetch.ScopeDelayMS},
		{KeyFetchCooldownMargin, settings.Fetch.CooldownMarginMS},
		{KeyFetchDefaultCooldown, settings.Fetch.DefaultCooldownSeconds},
		{KeyFetchMaxMessages, settings.Fetch.MaxMessages},
		{KeyFetchRPS, settings.Fetch.RequestsPerSecond},
		{KeyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := map[string]string{
		KeyDiscordToken:     settings.Discord.Token,
		KeyS3AccessKey:      settings.Archive.S3.AccessKey,
		KeyS3SecretKey:      settings.Archive.S3.SecretKey,
		KeyClassifierAPIKey: settings.Classifier.APIKey,
	}
	for key, val := range secrets {
		if val == "" {
			continue
		}
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetValue sets a single key from its string form.
func (s *SettingsService) SetValue(key, value string) error {
	spec, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if spec.validate != nil {
		if err := spec.validate(value); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
		}
	}

	var typed any = value
	switch spec.kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetToken stores the auth token and its type.
func (s *SettingsService) SetToken(token string, tokenType domain.TokenType) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is empty", domain.ErrInvalidInput)
	}
	if !tokenType.IsValid() {
		return fmt.Errorf("%w: token type %q", domain.ErrInvalidInput, tokenType)
	}
	if err := s.configStore.Set(KeyDiscordToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.configStore.Set(KeyDiscordTokenType, tokenType.String()); err != nil {
		return fmt.Errorf("save token type: %w", err)
	}
	return nil
}

// ClearToken removes the stored token.
func (s *SettingsService) ClearToken() error {
	return s.configStore.Delete(KeyDiscordToken)
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Archive.Backend == domain.ArchiveBackendS3 && !settings.Archive.S3.IsConfigured() {
		return fmt.Errorf("archive backend s3 requires %s and %s", KeyS3Endpoint, KeyS3Bucket)
	}
	if settings.Classifier.UseRemote && !settings.Classifier.IsConfigured() {
		return fmt.Errorf("remote classifier is enabled but %s is not set", KeyClassifierModel)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Keys returns every settable key with its effective value, sorted.
// Secrets are reported as set or unset, never shown.
func (s *SettingsService) Keys() ([]driving.SettingEntry, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	effective := effectiveValues(settings)

	entries := make([]driving.SettingEntry, 0, len(settableKeys))
	for key, spec := range settableKeys {
		e := driving.SettingEntry{Key: key, Value: effective[key]}
		if spec.kind == kindSecret {
			e.Secret = true
			e.Value = "(not set)"
			if effective[key] != "" {
				e.Value = "(set)"
			}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func effectiveValues(s *domain.AppSettings) map[string]string {
	itoa := strconv.Itoa
	btoa := strconv.FormatBool
	return map[string]string{
		KeyDiscordToken:         s.Discord.Token,
		KeyDiscordTokenType:     s.Discord.TokenType.String(),
		KeyDiscordAPIBase:       s.Discord.APIBase,
		KeyArchiveBackend:       s.Archive.Backend.String(),
		KeyArchiveDumpRoot:      s.Archive.DumpRoot,
		KeyArchiveCollectRoot:   s.Archive.CollectRoot,
		KeyS3Endpoint:           s.Archive.S3.Endpoint,
		KeyS3Bucket:             s.Archive.S3.Bucket,
		KeyS3AccessKey:          s.Archive.S3.AccessKey,
		KeyS3SecretKey:          s.Archive.S3.SecretKey,
		KeyS3Region:             s.Archive.S3.Region,
		KeyS3UseSSL:             btoa(s.Archive.S3.UseSSL),
		KeyClassifierUseRemote:  btoa(s.Classifier.UseRemote),
		KeyClassifierProvider:   s.Classifier.Provider.String(),
		KeyClassifierBaseURL:    s.Classifier.BaseURL,
		KeyClassifierModel:      s.Classifier.Model,
		KeyClassifierAPIKey:     s.Classifier.APIKey,
		KeyClassifierTimeout:    itoa(s.Classifier.TimeoutSeconds),
		KeyClassifierMaxChars:   itoa(s.Classifier.MaxChars),
		KeyFetchPageSize:        itoa(s.Fetch.PageSize),
		KeyFetchPageDelay:       itoa(s.Fetch.PageDelayMS),
		KeyFetchContainerDelay:  itoa(s.Fetch.ContainerDelayMS),
		KeyFetchScopeDelay:      itoa(s.Fetch.ScopeDelayMS),
		KeyFetchCooldownMargin:  itoa(s.Fetch.CooldownMarginMS),
		KeyFetchDefaultCooldown: itoa(s.Fetch.DefaultCooldownSeconds),
		KeyFetchMaxMessages:     itoa(s.Fetch.MaxMessages),
		KeyFetchRPS:             itoa(s.Fetch.RequestsPerSecond),
		KeyServerAddr:           s.Server.Addr,
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// Validators used by settableKeys.

func oneOf[T ~string](allowed ...T) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if string(a) == v {
				return nil
			}
		}
		return fmt.Errorf("must be one of %v", allowed)
	}
}

func nonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func httpURL(v string) error {
	if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}

func positive(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func nonNegative(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fmt.Errorf("must be zero or a positive integer")
	}
	return nil
}

func between(lo, hi int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
