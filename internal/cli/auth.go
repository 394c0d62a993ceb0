package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the saved API session",
	}
	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify credentials against the API and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)
			if err := cc.Config.requireTarget(); err != nil {
				return err
			}

			client, err := sissdk.New(cc.Config.Target())
			if err != nil {
				return err
			}

			data, err := client.Login(cmd.Context(), "", "", "")
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			if err := saveSession(session{
				BaseURL:      cc.Config.BaseURL,
				TenantSlug:   client.TenantSlug(),
				Email:        cc.Config.Email,
				AccessToken:  data.AccessToken,
				RefreshToken: data.RefreshToken,
				SavedAt:      time.Now().UTC(),
			}); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Logged in to %s\n", cc.Config.BaseURL)
			if user := client.CurrentUser(); user != nil {
				fmt.Fprintf(out, "  user    %s (%s)\n", user.Email, user.Role)
			}
			if tenant := client.CurrentTenant(); tenant != nil {
				fmt.Fprintf(out, "  tenant  %s (%s)\n", tenant.Name, tenant.Slug)
			}
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session for %s\n", s.BaseURL)
			fmt.Fprintf(out, "  email   %s\n", s.Email)
			fmt.Fprintf(out, "  tenant  %s\n", s.TenantSlug)
			fmt.Fprintf(out, "  saved   %s\n", s.SavedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the saved session and remove it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := fromCommand(cmd)

			s, err := loadSession()
			if err != nil {
				// Nothing saved; make sure nothing lingers either.
				return deleteSession()
			}

			baseURL := s.BaseURL
			if cc.Config.BaseURL != "" {
				baseURL = cc.Config.BaseURL
			}

			client, err := sissdk.New(sissdk.Config{
				BaseURL:    baseURL,
				TenantSlug: s.TenantSlug,
				Timeout:    cc.Config.Timeout,
			})
			if err == nil {
				client.RestoreSession(s.AccessToken, s.RefreshToken)
				// Best effort server-side; the local session goes regardless.
				client.Logout(cmd.Context())
			}

			if err := deleteSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
