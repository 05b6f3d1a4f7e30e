package cli

import (
	"context"

	"github.com/m-mizutani/newsdesk/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand(logCfg *logConfig) *cli.Command {
	var cfg config

	flags := storageFlags(&cfg)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the article tools over MCP on stdio",
		Flags: flags,
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			uc, err := cfg.newArticleUseCase(ctx, repo)
			if err != nil {
				return err
			}

			return mcp.ServeStdio(ctx, mcp.NewServer(uc))
		}),
	}
}
