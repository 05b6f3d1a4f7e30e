package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/usecase/article"
	"github.com/urfave/cli/v3"
)

func articleCommand(logCfg *logConfig) *cli.Command {
	return &cli.Command{
		Name:  "article",
		Usage: "Manage saved articles",
		Commands: []*cli.Command{
			articleListCommand(logCfg),
			articleSaveCommand(logCfg),
			articleDeleteCommand(logCfg),
		},
	}
}

func articleListCommand(logCfg *logConfig) *cli.Command {
	var (
		cfg    config
		asJSON bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print articles as a JSON array",
			Destination: &asJSON,
		},
	}
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List saved articles",
		Flags: flags,
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc := article.New(repo, nil)

			articles, err := uc.List(ctx)
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(articles); err != nil {
					return goerr.Wrap(err, "failed to write articles")
				}
				return nil
			}

			for _, a := range articles {
				fmt.Fprintf(w, "%s  %s (%d sources)\n", a.ID, a.Title, len(a.Sources))
			}
			fmt.Fprintf(w, "%d articles\n", len(articles))
			return nil
		}),
	}
}

func articleSaveCommand(logCfg *logConfig) *cli.Command {
	var (
		cfg       config
		inputPath string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "Path to a JSON article, \"-\" reads stdin",
			Value:       "-",
			Destination: &inputPath,
		},
	}
	flags = append(flags, storageFlags(&cfg)...)

	return &cli.Command{
		Name:  "save",
		Usage: "Save an article from JSON, e.g. the output of generate",
		Flags: flags,
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			data, err := readInput(inputPath)
			if err != nil {
				return err
			}

			var a model.Article
			if err := json.Unmarshal(data, &a); err != nil {
				return goerr.Wrap(err, "failed to parse article JSON")
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc := article.New(repo, nil)

			if err := uc.Save(ctx, &a); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Article saved: %s\n", a.ID)
			return nil
		}),
	}
}

func articleDeleteCommand(logCfg *logConfig) *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a saved article",
		ArgsUsage: "<article-id>",
		Flags:     storageFlags(&cfg),
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			id := model.ArticleID(c.Args().First())

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc := article.New(repo, nil)

			if err := uc.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Article deleted: %s\n", id)
			return nil
		}),
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read stdin")
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read input file", goerr.V("path", path))
	}
	return data, nil
}
