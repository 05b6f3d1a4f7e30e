package cli

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

// logConfig holds logging flags shared by every command
type logConfig struct {
	level  string
	format string
}

func Run(ctx context.Context, argv []string) *Error {
	if err := newApp(os.Stdout).Run(ctx, argv); err != nil {
		logging.Default().Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newApp(w io.Writer) *cli.Command {
	var logCfg logConfig

	return &cli.Command{
		Name:   "newsdesk",
		Usage:  "AI assisted newsroom: generate grounded news articles and keep an archive",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				Value:       "info",
				Sources:     cli.EnvVars("NEWSDESK_LOG_LEVEL"),
				Destination: &logCfg.level,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "Log format (console, json)",
				Value:       string(logging.FormatConsole),
				Sources:     cli.EnvVars("NEWSDESK_LOG_FORMAT"),
				Destination: &logCfg.format,
			},
		},
		Commands: []*cli.Command{
			serveCommand(&logCfg),
			generateCommand(&logCfg),
			articleCommand(&logCfg),
			passwdCommand(&logCfg),
			mcpCommand(&logCfg),
		},
	}
}

// withLogger configures the default logger from the logging flags before running
// action. Logs go to stderr so stdout stays usable for command output and MCP stdio.
func withLogger(logCfg *logConfig, action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		logger := logging.New(logCfg.level, os.Stderr, logging.WithFormat(logCfg.format))
		logging.SetDefault(logger)
		return action(logging.With(ctx, logger), c)
	}
}
