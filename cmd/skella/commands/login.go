package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/skella/internal/constants"
	"github.com/fivetwenty-io/skella/pkg/skella"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the API",
		Long:  "Authenticate with email and password and store the session cookie in the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = loadConfig().Email
			}

			if email == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Email: ")

				line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				email = strings.TrimSpace(line)
			}

			if email == "" {
				return constants.ErrEmailRequired
			}

			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")

				bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}

				password = string(bytePassword)

				fmt.Fprintln(cmd.OutOrStdout())
			}

			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			user, err := conn.Session().Login(commandContext(cmd), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			config := loadConfig()
			config.Token = conn.Session().Token()
			config.Email = email

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.GetString("email"))

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the API",
		Long:  "End the session on the server and remove the stored session cookie",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			if conn.Session().LoggedIn() {
				err = conn.Session().Logout(commandContext(cmd))
				if err != nil && !skella.IsNotLoggedIn(err) {
					return fmt.Errorf("logout failed: %w", err)
				}
			}

			config := loadConfig()
			config.Token = ""

			err = saveConfig(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		Long:  "Fetch the logged-in user from the API, or show the cached record with --cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(cmd)
			if err != nil {
				return err
			}
			defer conn.Close()

			user := conn.Session().CurrentUser()

			if !cached {
				if !conn.Session().LoggedIn() {
					return constants.ErrNotLoggedIn
				}

				user, err = conn.Session().SyncUser(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("failed to fetch current user: %w", err)
				}
			}

			if user == nil {
				return constants.ErrNotLoggedIn
			}

			attributes := user.Attributes()
			attributes["privileged"] = conn.Schema().IsPrivileged()

			return render(cmd.OutOrStdout(), attributes, attributeTable(attributes))
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "show the cached user record without a request")

	return cmd
}
