package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budgie/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token [user-id]",
		Short: "Issue an API bearer token signed with JWT_SECRET",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := opts.user
			if len(args) == 1 {
				user = args[0]
			}
			if user == "" {
				return errors.New("no user: pass a user id, --user or set BUDGIE_USER")
			}

			cfg := loadConfig()
			tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
			if err != nil {
				return err
			}
			tok, exp, err := tokens.Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
}
