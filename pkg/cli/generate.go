package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func generateCommand(logCfg *logConfig) *cli.Command {
	var (
		cfg  config
		save bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "save",
			Aliases:     []string{"s"},
			Usage:       "Save the generated article",
			Sources:     cli.EnvVars("NEWSDESK_GENERATE_SAVE"),
			Destination: &save,
		},
	}
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate a news article about a topic and print it as JSON",
		ArgsUsage: "<topic>",
		Flags:     flags,
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			topic := strings.Join(c.Args().Slice(), " ")

			// Initialize dependencies
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc, err := cfg.newArticleUseCase(ctx, repo)
			if err != nil {
				return err
			}

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
			s.Suffix = " Writing article..."
			s.Start()
			article, err := uc.Generate(ctx, topic)
			s.Stop()
			if err != nil {
				return err
			}

			if save {
				if err := uc.Save(ctx, article); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(c.Root().Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(article); err != nil {
				return goerr.Wrap(err, "failed to write article")
			}
			return nil
		}),
	}
}
