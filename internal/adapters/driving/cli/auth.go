package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/custodia-labs/chronicle/internal/adapters/driven/oauth"
	oauthcb "github.com/custodia-labs/chronicle/internal/adapters/driving/oauth"
	"github.com/custodia-labs/chronicle/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Discord token",
	Long: `Store, inspect or remove the Discord token chronicle uses.

The token can also be supplied through the CHRONICLE_TOKEN environment
variable, which takes precedence over the stored one.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a Discord token",
	Long: `Prompt for a Discord token and store it in the config file.

The prompt does not echo. Use --bot for a bot token or --type bearer for
an OAuth2 access token.

With --oauth, chronicle opens the Discord consent page for your
application and stores the returned access token as a bearer token.
Register http://localhost:<port>/callback as a redirect URI first.

Examples:
  chronicle auth login
  chronicle auth login --bot
  chronicle auth login --oauth --client-id 123456789012345678`,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current token state",
	RunE:  runAuthStatus,
}

// oauthTimeout bounds the wait for the browser redirect.
const oauthTimeout = 5 * time.Minute

// Flags for auth login.
var (
	authLoginBot      bool
	authLoginType     string
	authLoginOAuth    bool
	authLoginClientID string
	authLoginPort     int
)

// Seams replaced by tests.
var (
	readSecret    = readPassword
	openBrowser   = oauthcb.OpenBrowser
	oauthEndpoint *oauth2.Endpoint
)

func init() {
	authLoginCmd.Flags().BoolVar(&authLoginBot, "bot", false, "Store a bot token")
	authLoginCmd.Flags().StringVar(&authLoginType, "type", "", "Token type: user, bot or bearer")
	authLoginCmd.Flags().BoolVar(&authLoginOAuth, "oauth", false, "Authorize in the browser and store a bearer token")
	authLoginCmd.Flags().StringVar(&authLoginClientID, "client-id", "", "OAuth2 application client ID (with --oauth)")
	authLoginCmd.Flags().IntVar(&authLoginPort, "port", oauthcb.DefaultPort, "Loopback port for the OAuth2 redirect")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

// loginTokenType resolves the token type from the login flags.
func loginTokenType() (domain.TokenType, error) {
	if authLoginBot {
		if authLoginType != "" && authLoginType != string(domain.TokenTypeBot) {
			return "", fmt.Errorf("--bot conflicts with --type %s", authLoginType)
		}
		return domain.TokenTypeBot, nil
	}
	if authLoginType == "" {
		return domain.TokenTypeUser, nil
	}
	t := domain.TokenType(authLoginType)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid token type: %s", authLoginType)
	}
	return t, nil
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if authLoginOAuth {
		return runOAuthLogin(cmd)
	}

	tokenType, err := loginTokenType()
	if err != nil {
		return err
	}

	cmd.Printf("Paste your %s token: ", tokenType)
	token := strings.TrimSpace(readSecret())
	cmd.Println()
	if token == "" {
		return errors.New("no token entered")
	}

	if err := settingsService.SetToken(token, tokenType); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	cmd.Printf("Token saved (%s, %s).\n", tokenType.Description(), maskAPIKey(token))
	cmd.Println("Run 'chronicle dump check' to verify it.")
	return nil
}

// runOAuthLogin runs the authorization code grant through the browser.
func runOAuthLogin(cmd *cobra.Command) error {
	if authLoginBot || (authLoginType != "" && authLoginType != string(domain.TokenTypeBearer)) {
		return errors.New("--oauth always stores a bearer token")
	}
	if authLoginClientID == "" {
		return errors.New("--oauth requires --client-id")
	}

	cmd.Print("Client secret (empty for none): ")
	secret := strings.TrimSpace(readSecret())
	cmd.Println()

	state, err := oauthcb.NewState()
	if err != nil {
		return err
	}
	server := oauthcb.NewCallbackServer(authLoginPort, state)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	defer server.Stop() //nolint:errcheck

	flow, err := oauth.NewFlow(oauth.Config{
		ClientID:     authLoginClientID,
		ClientSecret: secret,
		RedirectURI:  server.RedirectURI(),
		Endpoint:     oauthEndpoint,
	})
	if err != nil {
		return err
	}

	authURL := flow.AuthCodeURL(state)
	cmd.Println("Opening your browser to authorize chronicle. If it does not open, visit:")
	cmd.Println("  " + authURL)
	if err := openBrowser(authURL); err != nil {
		cmd.PrintErrf("Could not open a browser: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), oauthTimeout)
	defer cancel()
	code, err := server.WaitForCode(ctx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	tok, err := flow.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}
	if err := settingsService.SetToken(tok.AccessToken, domain.TokenTypeBearer); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	cmd.Printf("Token saved (%s, %s).\n", domain.TokenTypeBearer.Description(), maskAPIKey(tok.AccessToken))
	if !tok.Expiry.IsZero() {
		cmd.Printf("It expires %s; run this command again then.\n", tok.Expiry.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.ClearToken(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	cmd.Println("Token removed.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	source := ""
	if tokenSource != nil {
		source = tokenSource()
	}

	switch {
	case source == "env":
		cmd.Println("Token:  from CHRONICLE_TOKEN")
	case settings.Discord.HasToken():
		cmd.Printf("Token:  %s\n", maskAPIKey(settings.Discord.Token))
	default:
		cmd.Println("Token:  (not set)")
		cmd.Println("Run 'chronicle auth login' to add one.")
		return nil
	}
	cmd.Printf("Type:   %s\n", settings.Discord.TokenType.Description())
	cmd.Printf("API:    %s\n", settings.Discord.APIBase)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
