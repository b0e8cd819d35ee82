// Package discord implements the message source, directory and live
// stream ports against the Discord API.
//
// REST listing and the live stream both go through discordgo sessions.
// REST calls disable discordgo's in-library rate limit retry so that a
// 429 reaches the fetcher as a typed domain error.
package discord

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// HeaderRetryAfter is the cool-down header (seconds, may be fractional).
	HeaderRetryAfter = "Retry-After"

	userAgent = "chronicle (https://github.com/custodia-labs/chronicle, 1.0)"
)

// Config configures the REST client.
type Config struct {
	// APIBase is the versioned API root, e.g. https://discord.com/api/v9.
	APIBase string

	// TokenType selects the authorization scheme.
	TokenType domain.TokenType

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client performs authenticated REST requests through one discordgo
// session per token.
type Client struct {
	tokenType domain.TokenType
	http      *http.Client

	mu       sync.Mutex
	sessions map[string]*discordgo.Session
}

// NewClient creates a REST client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = domain.DefaultAPIBase
	}
	tt := cfg.TokenType
	if !tt.IsValid() {
		tt = domain.TokenTypeUser
	}

	hc := &http.Client{Timeout: DefaultTimeout}
	if cfg.HTTPClient != nil {
		clone := *cfg.HTTPClient
		hc = &clone
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	hc.Transport = &apiTransport{base: parseBase(base), next: next}

	return &Client{tokenType: tt, http: hc, sessions: make(map[string]*discordgo.Session)}
}

// AuthorizationValue returns the Authorization header value for a token.
// User tokens are sent bare; bot and bearer tokens carry their scheme.
func AuthorizationValue(tokenType domain.TokenType, token string) string {
	switch tokenType {
	case domain.TokenTypeBot:
		t := &oauth2.Token{AccessToken: token, TokenType: "Bot"}
		return t.Type() + " " + t.AccessToken
	case domain.TokenTypeBearer:
		t := &oauth2.Token{AccessToken: token, TokenType: "bearer"}
		return t.Type() + " " + t.AccessToken
	default:
		return token
	}
}

// session returns the cached session for token, creating it on first use.
// Sessions are kept so that discordgo's bucket state survives across pages.
func (c *Client) session(token string) *discordgo.Session {
	auth := AuthorizationValue(c.tokenType, token)

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[auth]; ok {
		return s
	}
	s, _ := discordgo.New(auth) // New never fails
	s.Client = c.http
	s.UserAgent = userAgent
	s.ShouldRetryOnRateLimit = false
	s.StateEnabled = false
	c.sessions[auth] = s
	return s
}

// translate maps discordgo REST failures onto domain errors.
// A 429 becomes *domain.RateLimitError and any other non-2xx status
// becomes *domain.APIError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var rle *discordgo.RateLimitError
	if errors.As(err, &rle) && rle.RateLimit != nil && rle.TooManyRequests != nil {
		wait := rle.RetryAfter
		if wait <= 0 {
			return &domain.RateLimitError{}
		}
		return &domain.RateLimitError{RetryAfter: wait, Known: true}
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		msg := ""
		if rest.Message != nil {
			msg = rest.Message.Message
		}
		return &domain.APIError{StatusCode: rest.Response.StatusCode, Message: msg}
	}
	return err
}

// apiTransport points discordgo's fixed endpoints at the configured API
// root and normalises 429 bodies so the cool-down survives decoding.
type apiTransport struct {
	base *url.URL
	next http.RoundTripper
}

func parseBase(base string) *url.URL {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		u, _ = url.Parse(domain.DefaultAPIBase)
	}
	return u
}

// defaultPrefix is the path prefix of discordgo's endpoint variables.
var defaultPrefix = "/api/v" + discordgo.APIVersion

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.base.Scheme
	out.URL.Host = t.base.Host
	out.URL.Path = strings.TrimRight(t.base.Path, "/") + strings.TrimPrefix(req.URL.Path, defaultPrefix)
	out.URL.RawPath = ""
	out.Host = ""
	out.Header.Set("Accept", "application/json")

	resp, err := t.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if err := normaliseRateLimit(resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

type rateLimitBody struct {
	RetryAfter float64 `json:"retry_after"`
}

// normaliseRateLimit rewrites a 429 body so it always decodes: the JSON
// retry_after wins, then the Retry-After header, else no cool-down.
func normaliseRateLimit(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("read rate limit body: %w", err)
	}

	var rl rateLimitBody
	if err := json.Unmarshal(body, &rl); err != nil || rl.RetryAfter <= 0 {
		rl.RetryAfter = 0
		if v := resp.Header.Get(HeaderRetryAfter); v != "" {
			if s, err := strconv.ParseFloat(v, 64); err == nil && s > 0 {
				rl.RetryAfter = s
			}
		}
		body, _ = json.Marshal(rl)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Del("Content-Length")
	return nil
}
