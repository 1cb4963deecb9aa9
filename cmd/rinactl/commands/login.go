package commands

import (
	"fmt"

	"github.com/rina-go/rinad/cmd/rinactl/cmdutil"
	"github.com/rina-go/rinad/internal/cli/prompt"
	"github.com/rina-go/rinad/internal/cli/session"
	"github.com/rina-go/rinad/pkg/controlapi/client"
	"github.com/spf13/cobra"
)

var (
	loginServer  string
	loginSubject string
	loginSecret  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with a rinad control-API server",
	Long: `Authenticate with a running rinad daemon's control-API HTTP façade
using the operator's shared secret and store the issued session token.

Examples:
  # First login to a daemon
  rinactl login --server http://localhost:7378

  # Re-login using the saved server URL
  rinactl login`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginServer, "server", "", "Control-API HTTP address (required on first login)")
	loginCmd.Flags().StringVar(&loginSubject, "subject", "", "Session subject label (default: operator)")
	loginCmd.Flags().StringVar(&loginSecret, "secret", "", "Shared secret (prompted if not provided)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	store, err := session.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	serverURL := loginServer
	if serverURL == "" {
		if sess, err := store.Get(); err == nil && sess.ServerURL != "" {
			serverURL = sess.ServerURL
		} else {
			return fmt.Errorf("no server URL specified and no saved session found\n\n" +
				"Specify the control-API address:\n" +
				"  rinactl login --server http://localhost:7378")
		}
	}

	secret := loginSecret
	if secret == "" {
		secret, err = prompt.Password("Shared secret")
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	}

	c := client.New(serverURL)
	fmt.Printf("Logging in to %s...\n", serverURL)
	result, err := c.Login(secret, loginSubject)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := store.Set(&session.Session{
		ServerURL: serverURL,
		Subject:   loginSubject,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Println("Logged in successfully")
	fmt.Printf("Session saved to: %s\n", store.ConfigPath())
	return nil
}
