package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igharvest/pkg/auth"
	"igharvest/pkg/ui"
)

var authUserAgent string

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the session credential",
	Long: `Manage the session credential used for browsing and the metadata API.

Credentials are looked up in order:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment (IGHARVEST_SESSION_ID or IG_SESSIONID)
  - Session file (IG_SESSIONID.txt)

Never share your session id!`,
}

// authSetCmd represents the auth set command
var authSetCmd = &cobra.Command{
	Use:   "set [label]",
	Short: "Store a session id securely",
	Long: `Store a session id in the system keychain, or the encrypted file when no
keychain is available. The value is read without echo.`,
	Example: `  # Store the default credential
  igharvest auth set

  # Store a second credential and use it with session.label: alt
  igharvest auth set alt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthSet,
}

// authShowCmd represents the auth show command
var authShowCmd = &cobra.Command{
	Use:   "show [label]",
	Short: "Show which credential a run would use",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthShow,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

// authDeleteCmd represents the auth delete command
var authDeleteCmd = &cobra.Command{
	Use:   "delete [label]",
	Short: "Remove a stored credential",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthDelete,
}

// authGuideCmd represents the auth guide command
var authGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to find the session cookie",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowSessionExtractionGuide()
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authShowCmd, authListCmd, authDeleteCmd, authGuideCmd)

	authSetCmd.Flags().StringVar(&authUserAgent, "user-agent", "", "user agent to browse with")
}

func labelArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultLabel
}

func authManager() (*auth.Manager, error) {
	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	return credentialManager(cfg), nil
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := authManager()
	if err != nil {
		return err
	}
	label := labelArg(args)

	fmt.Printf("sessionid cookie value for %q: ", label)
	value, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read session id: %w", err)
	}
	// Accept a pasted Cookie header as well as the bare value.
	if parsed, perr := auth.ParseSessionFile(value); perr == nil {
		value = parsed
	}

	cred := &auth.Credential{Label: label, SessionID: value, UserAgent: authUserAgent}
	if err := manager.Store(cred); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Credential %q stored (%s)", label, auth.MaskString(cred.SessionID)))
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{})
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Session.Label = labelArg(args)
	}

	session, source := resolveSession(cfg, credentialManager(cfg))
	if session.ID == "" {
		ui.PrintWarning("No session credential found; runs will browse anonymously")
		fmt.Println("Run 'igharvest auth guide' to see how to get one.")
		return nil
	}
	ui.PrintInfo("Source", source)
	ui.PrintInfo("Session ID", auth.MaskString(session.ID))
	if session.UserAgent != "" {
		ui.PrintInfo("User Agent", session.UserAgent)
	}
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := authManager()
	if err != nil {
		return err
	}
	creds, err := manager.List()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored credentials", "use 'igharvest auth set' to add one")
		return nil
	}

	rows := make([]ui.Row, 0, len(creds))
	for _, c := range creds {
		s := auth.SanitizeCredential(c)
		rows = append(rows, ui.Row{s.Label, s.SessionID, s.LastModified.Format("2006-01-02 15:04:05")})
	}
	ui.PrintTable(ui.Row{"LABEL", "SESSION", "MODIFIED"}, rows)
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	manager, err := authManager()
	if err != nil {
		return err
	}
	label := labelArg(args)

	if err := manager.Delete(label); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintWarning("No stored credential", label)
			return nil
		}
		return err
	}
	ui.PrintSuccess("Credential removed: " + label)
	return nil
}

// readSecret reads a line from stdin without echoing when it is a terminal
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
