// Package cli implements the ticket-pdf command-line interface.
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"zafo-tickets/internal/logger"
)

// CLI holds state shared by all commands.
type CLI struct {
	Logger *logger.Logger
	Out    io.Writer
}

func New(out io.Writer, log *logger.Logger) *CLI {
	return &CLI{Logger: log, Out: out}
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "ticket-pdf",
		Short:        "Render ticket documents from JSON ticket records",
		SilenceUsage: true,
	}

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.qrCommand())
	root.AddCommand(c.migrateCommand())
	return root
}
