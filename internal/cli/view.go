package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"marginalia/internal/viewer"
)

func (c *CLI) viewCommand() *cobra.Command {
	var (
		vp     viewport
		guides bool
	)
	cmd := &cobra.Command{
		Use:   "view <input>",
		Short: "Open the page in a window that re-places notes on resize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, h := c.resolveViewport(vp)
			p, err := c.openPage(ctx, args[0], w, h)
			if err != nil {
				return err
			}
			v := viewer.New(p, viewer.Options{
				Title:    filepath.Base(args[0]) + " - marginalia",
				Schedule: c.Config.ScheduleOptions(),
				Guides:   guides,
				Logger:   loggerFromContext(ctx),
			})
			return v.Run(ctx)
		},
	}
	vp.addFlags(cmd)
	cmd.Flags().BoolVar(&guides, "guides", false, "draw lines from triggers to their notes")
	return cmd
}
