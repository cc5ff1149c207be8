package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"marginalia/pkg/render"
)

func (c *CLI) layoutCommand() *cobra.Command {
	var (
		vp     viewport
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "layout <input>",
		Short: "Print the margin note placements for an HTML page or Markdown post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.prepare(cmd.Context(), args[0], vp)
			if err != nil {
				return err
			}
			records := placementRecords(p.Placements())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			w, _ := p.Viewport()
			if w < c.Config.Margin.Breakpoint {
				fmt.Fprintln(out, StyleWarning.Render(fmt.Sprintf("viewport %gpx is below the %gpx breakpoint; notes stay in the text", w, c.Config.Margin.Breakpoint)))
			}
			printPlacements(out, filepath.Base(args[0]), records)
			return nil
		},
	}
	vp.addFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print placements as JSON")
	return cmd
}

func (c *CLI) renderCommand() *cobra.Command {
	var (
		vp     viewport
		output string
		guides bool
	)
	cmd := &cobra.Command{
		Use:   "render <input>",
		Short: "Render the laid out page to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.prepare(ctx, args[0], vp)
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".png"
			}
			r := render.Page(ctx, p, render.Options{Guides: guides, Logger: loggerFromContext(ctx)})
			if err := r.SavePNG(output); err != nil {
				return err
			}
			printDone(cmd.OutOrStdout(), "Rendered %s", output)
			return nil
		},
	}
	vp.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PNG (default: input name with .png)")
	cmd.Flags().BoolVar(&guides, "guides", false, "draw lines from triggers to their notes")
	return cmd
}

func (c *CLI) applyCommand() *cobra.Command {
	var (
		vp     viewport
		output string
	)
	cmd := &cobra.Command{
		Use:   "apply <input>",
		Short: "Write the page with margin notes positioned inline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.prepare(cmd.Context(), args[0], vp)
			if err != nil {
				return err
			}
			doc := p.HTML()
			if output == "" || output == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printDone(cmd.OutOrStdout(), "Wrote %s (%d notes)", output, len(p.Placements()))
			return nil
		},
	}
	vp.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output HTML file (default: stdout)")
	return cmd
}

func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Config.Write(cmd.OutOrStdout())
		},
	}
}
