package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/worksite/internal/session"
	"github.com/mesh-intelligence/worksite/internal/validate"
	"github.com/mesh-intelligence/worksite/pkg/types"
)

// readSecret returns value, or the first line of stdin when value is empty.
func (a *app) readSecret(value string) string {
	if value != "" {
		return value
	}
	line, _ := bufio.NewReader(a.in).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func (a *app) loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session for this server",
		Long: "Login exchanges a username and password for a token and stores it in\n" +
			"the session database. Without --password the password is read from stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := validate.Login(map[string]string{
				"username": username,
				"password": a.readSecret(password),
			})
			if err != nil {
				return a.invalid(err)
			}

			c, err := a.newClient()
			if err != nil {
				return err
			}
			res, err := c.Login(cmd.Context(), creds)
			if err != nil {
				return failed(fmt.Errorf("login: %w", err))
			}
			return a.saveSession(cmd, res, "Logged in as %s\n")
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (default: read from stdin)")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in as it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := validate.Register(map[string]string{
				"username": username,
				"email":    email,
				"password": a.readSecret(password),
			})
			if err != nil {
				return a.invalid(err)
			}

			c, err := a.newClient()
			if err != nil {
				return err
			}
			res, err := c.Register(cmd.Context(), reg)
			if err != nil {
				return failed(fmt.Errorf("register: %w", err))
			}
			return a.saveSession(cmd, res, "Registered and logged in as %s\n")
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (default: read from stdin)")
	return cmd
}

func (a *app) saveSession(cmd *cobra.Command, res types.AuthResult, format string) error {
	s, err := session.FromAuth(a.cfg.Server, res, a.now())
	if err != nil {
		return sysError(fmt.Errorf("read token: %w", err))
	}

	st, err := a.openSessions()
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Save(cmd.Context(), s); err != nil {
		return sysError(fmt.Errorf("save session: %w", err))
	}

	if a.flags.jsonMode {
		return a.printJSON(s)
	}
	fmt.Fprintf(a.out, format, s.Username)
	return nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session for this server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openSessions()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), a.cfg.Server); err != nil {
				return sysError(fmt.Errorf("delete session: %w", err))
			}
			fmt.Fprintf(a.out, "Logged out of %s\n", a.cfg.Server)
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Long:  "Whoami shows who you are logged in as on this server, or with --all on every server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openSessions()
			if err != nil {
				return err
			}
			defer st.Close()

			if all {
				sessions, err := st.List(cmd.Context())
				if err != nil {
					return sysError(fmt.Errorf("list sessions: %w", err))
				}
				return a.printSessions(sessions)
			}

			s, err := st.Load(cmd.Context(), a.cfg.Server)
			if err != nil && !errors.Is(err, types.ErrExpired) {
				if errors.Is(err, types.ErrNoSession) {
					return userError(fmt.Errorf("%w to %s", err, a.cfg.Server))
				}
				return sysError(fmt.Errorf("load session: %w", err))
			}
			if a.flags.jsonMode {
				return a.printJSON(s)
			}
			fmt.Fprintf(a.out, "%s (id %d, %s) on %s\n", s.Username, s.UserID, roleOf(s), s.Server)
			if !s.ExpiresAt.IsZero() {
				verb := "expires"
				if s.Expired(a.now()) {
					verb = "expired"
				}
				fmt.Fprintf(a.out, "Session %s %s\n", verb, s.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list the sessions of every server")
	return cmd
}

func roleOf(s session.Session) string {
	if s.Role == "" {
		return types.RoleUser
	}
	return s.Role
}

func (a *app) printSessions(sessions []session.Session) error {
	if a.flags.jsonMode {
		if sessions == nil {
			sessions = []session.Session{}
		}
		return a.printJSON(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(a.out, "No sessions.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVER\tUSER\tROLE\tEXPIRES")
	for _, s := range sessions {
		expires := "-"
		if !s.ExpiresAt.IsZero() {
			expires = s.ExpiresAt.Local().Format("2006-01-02 15:04")
			if s.Expired(a.now()) {
				expires += " (expired)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Server, s.Username, roleOf(s), expires)
	}
	return w.Flush()
}

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			if err := c.Health(cmd.Context()); err != nil {
				return sysError(fmt.Errorf("%s is unhealthy: %w", a.cfg.Server, err))
			}
			fmt.Fprintf(a.out, "%s is healthy\n", a.cfg.Server)
			return nil
		},
	}
}
