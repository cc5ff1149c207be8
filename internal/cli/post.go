package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"marginalia/pkg/post"
)

func (c *CLI) postCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create and inspect blog posts",
	}
	cmd.AddCommand(c.postNewCommand())
	cmd.AddCommand(c.postThoughtCommand())
	cmd.AddCommand(c.postDraftCommand())
	cmd.AddCommand(c.postListCommand())
	cmd.AddCommand(c.postSearchCommand())
	cmd.AddCommand(c.postStatsCommand())
	return cmd
}

func (c *CLI) postStore() post.Store {
	return post.Store{Dir: c.Config.Posts.Dir}
}

func (c *CLI) postOptions(tags []string, notes bool) post.Options {
	if len(tags) == 0 {
		tags = c.Config.Posts.Tags
	}
	return post.Options{Tags: tags, Author: c.Config.Posts.Author, Notes: notes, Now: time.Now()}
}

// readContent returns the named file, stdin for "-", or "" with no name.
func readContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	if args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(b), nil
}

func (c *CLI) writePost(cmd *cobra.Command, p *post.Post) error {
	path, err := c.postStore().Write(p)
	if err != nil {
		return err
	}
	loggerFromContext(cmd.Context()).Debug("post written", "path", path, "tags", p.Front.Tags)
	printDone(cmd.OutOrStdout(), "Post created: %s", StyleValue.Render(path))
	return nil
}

func (c *CLI) postNewCommand() *cobra.Command {
	var (
		tags   []string
		notes  bool
		series string
		part   int
	)
	cmd := &cobra.Command{
		Use:   "new <title> [content-file|-]",
		Short: "Write a new post, converting word[[note]] markers with --notes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, args[1:])
			if err != nil {
				return err
			}
			opts := c.postOptions(tags, notes)
			var p *post.Post
			if series != "" {
				p = post.NewSeriesPost(series, part, args[0], content, opts)
			} else {
				p = post.NewPost(args[0], content, opts)
			}
			return c.writePost(cmd, p)
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma separated tags")
	cmd.Flags().BoolVar(&notes, "notes", false, "convert word[[note]] markers to margin notes")
	cmd.Flags().StringVar(&series, "series", "", "series name")
	cmd.Flags().IntVar(&part, "part", 1, "part number within the series")
	return cmd
}

func (c *CLI) postThoughtCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "thought <text>",
		Short: "Post a short thought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.writePost(cmd, post.NewThought(args[0], c.postOptions(nil, false)))
		},
	}
}

func (c *CLI) postDraftCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "draft <title> [outline-file|-]",
		Short: "Write an unpublished draft with an outline",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outline, err := readContent(cmd, args[1:])
			if err != nil {
				return err
			}
			return c.writePost(cmd, post.NewDraft(args[0], outline, c.postOptions(nil, false)))
		},
	}
}

func (c *CLI) postListCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent posts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.postStore().Recent(count)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render("Recent posts"))
			for _, e := range entries {
				fmt.Fprintf(out, "  %s %s\n", StyleValue.Render(e.Name), StyleDim.Render(e.ModTime.Format(time.DateOnly)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of posts")
	return cmd
}

func (c *CLI) postSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find posts containing a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := c.postStore().Search(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, StyleWarning.Render(fmt.Sprintf("No posts contain %q", args[0])))
				return nil
			}
			fmt.Fprintln(out, StyleTitle.Render(fmt.Sprintf("%d posts contain %q", len(found), args[0])))
			for _, name := range found {
				fmt.Fprintf(out, "  %s\n", StyleValue.Render(name))
			}
			return nil
		},
	}
}

func (c *CLI) postStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show post counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.postStore().Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render("Blog statistics"))
			fmt.Fprintf(out, "  %s %s\n", StyleDim.Render("total: "), StyleNumber.Render(fmt.Sprint(st.Total)))
			fmt.Fprintf(out, "  %s %s\n", StyleDim.Render("latest:"), StyleValue.Render(st.Latest))
			fmt.Fprintf(out, "  %s %s\n", StyleDim.Render("oldest:"), StyleValue.Render(st.Oldest))
			return nil
		},
	}
}
