package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/newsdesk/pkg/usecase/auth"
	"github.com/urfave/cli/v3"
)

func passwdCommand(logCfg *logConfig) *cli.Command {
	var (
		cfg         config
		oldPassword string
		newPassword string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "old",
			Usage:       "Current admin password",
			Sources:     cli.EnvVars("NEWSDESK_OLD_PASSWORD"),
			Destination: &oldPassword,
		},
		&cli.StringFlag{
			Name:        "new",
			Usage:       "New admin password, at least 4 characters",
			Sources:     cli.EnvVars("NEWSDESK_NEW_PASSWORD"),
			Destination: &newPassword,
		},
	}
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "passwd",
		Usage: "Change the admin password",
		Flags: flags,
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			if err := auth.New(repo).ChangePassword(ctx, oldPassword, newPassword); err != nil {
				return err
			}

			fmt.Fprintln(c.Root().Writer, "Password changed")
			return nil
		}),
	}
}
