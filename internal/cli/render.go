package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/qr"
	"zafo-tickets/internal/tickets/render"
	"zafo-tickets/internal/tickets/template"
)

type renderOpts struct {
	in     string  // JSON file holding one ticket or a list
	out    string  // output directory
	batch  bool    // one document with a page per ticket
	scale  float64 // raster scale factor
	brand  string
	accent string
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{
		out:    ".",
		scale:  render.DefaultScale,
		brand:  template.DefaultBrand,
		accent: template.DefaultAccent,
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write ticket PDFs for the tickets in a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "JSON file with a ticket or a list of tickets")
	cmd.Flags().StringVarP(&opts.out, "out", "o", opts.out, "output directory")
	cmd.Flags().BoolVarP(&opts.batch, "batch", "b", false, "write one document with a page per ticket")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "raster scale factor")
	cmd.Flags().StringVar(&opts.brand, "brand", opts.brand, "brand name printed in the header")
	cmd.Flags().StringVar(&opts.accent, "accent", opts.accent, "header colour as #rrggbb")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts renderOpts) error {
	tickets, err := readTickets(opts.in)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	renderer := render.NewRenderer(
		render.WithScale(opts.scale),
		render.WithTemplate(template.Options{Brand: opts.brand, Accent: opts.accent}),
		render.WithLogger(c.Logger),
	)
	ctx := cmd.Context()

	if opts.batch {
		doc, err := renderer.GenerateBatch(ctx, tickets)
		if err != nil {
			return err
		}
		if doc == nil {
			fmt.Fprintln(c.Out, "no tickets, nothing written")
			return nil
		}
		return c.write(opts.out, doc)
	}

	for _, ticket := range tickets {
		doc, err := renderer.GenerateSingle(ctx, ticket)
		if err != nil {
			return err
		}
		if err := c.write(opts.out, doc); err != nil {
			return err
		}
	}
	return nil
}

func (c *CLI) write(dir string, doc *models.TicketDocument) error {
	path := filepath.Join(dir, doc.Filename)
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(c.Out, "%s (%d pages)\n", path, doc.Pages)
	return nil
}

func (c *CLI) qrCommand() *cobra.Command {
	var in, out string
	size := qr.PreviewSize

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Write the QR preview PNG of a single ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tickets, err := readTickets(in)
			if err != nil {
				return err
			}
			if len(tickets) != 1 {
				return fmt.Errorf("%s holds %d tickets, expected one", in, len(tickets))
			}
			raster, err := qr.NewEncoder().Encode(qr.Payload(tickets[0]), size)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("ticket-%s.png", tickets[0].TicketNumber)
			}
			if err := os.WriteFile(out, raster, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(c.Out, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "JSON file with one ticket")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path")
	cmd.Flags().IntVar(&size, "size", size, "edge length in pixels")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

// readTickets accepts either a single JSON object or an array of them.
func readTickets(path string) ([]models.TicketRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tickets: %w", err)
	}
	return parseTickets(data)
}

func parseTickets(data []byte) ([]models.TicketRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("ticket file is empty")
	}

	if trimmed[0] == '[' {
		var list []models.TicketRecord
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode ticket list: %w", err)
		}
		return list, nil
	}

	var ticket models.TicketRecord
	if err := json.Unmarshal(trimmed, &ticket); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	return []models.TicketRecord{ticket}, nil
}
