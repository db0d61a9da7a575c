package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"launchgpt-go/internal/config"
	"launchgpt-go/pkg/token"
)

type tokenOptions struct {
	*rootOptions
	secret   string
	ttl      time.Duration
	username string
}

func newTokenCmd(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or inspect session tokens",
	}
	cmd.PersistentFlags().StringVar(&opts.secret, "secret", "", "Signing secret (defaults to session.secret from the config)")

	issue := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Issue a session token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			m, err := opts.manager()
			if err != nil {
				return err
			}
			tok, err := m.Issue(uint(userID), opts.username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issue.Flags().StringVar(&opts.username, "username", "", "Username claim")
	issue.Flags().DurationVar(&opts.ttl, "ttl", 0, "Token lifetime (defaults to session.ttl)")

	inspect := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a session token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := opts.manager()
			if err != nil {
				return err
			}
			claims, err := m.Inspect(args[0])
			if err != nil {
				return fmt.Errorf("token rejected: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subject:   %s\n", claims.Subject)
			fmt.Fprintf(out, "username:  %s\n", claims.Username)
			if claims.IssuedAt != nil {
				fmt.Fprintf(out, "issued:    %s\n", claims.IssuedAt.UTC().Format(time.RFC3339))
			}
			if claims.ExpiresAt != nil {
				fmt.Fprintf(out, "expires:   %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.AddCommand(issue, inspect)
	return cmd
}

// manager 优先使用 --secret，否则从服务配置中读取密钥与有效期。
func (o *tokenOptions) manager() (*token.Manager, error) {
	secret, ttl := o.secret, o.ttl
	if secret == "" {
		cfg, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		secret = cfg.Session.Secret
		if ttl <= 0 {
			ttl = cfg.Session.TTL
		}
	}
	return token.NewManager(secret, ttl)
}
