package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"news-reader/internal/config"
	"news-reader/internal/markdown"
)

type renderFlags struct {
	engine    string
	sanitize  bool
	wrapLists bool
}

func newRenderCmd() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render [filename]",
		Short: "Render a markdown article to HTML (reads stdin without a filename)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.RenderOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("engine") {
				if opts.Engine, err = markdown.ParseEngine(flags.engine); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("sanitize") {
				opts.EscapeHTML = flags.sanitize
			}
			if cmd.Flags().Changed("wrap-lists") {
				opts.WrapLists = flags.wrapLists
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			source, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read markdown: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), markdown.New(opts).Render(string(source)))
			return err
		},
	}

	cmd.Flags().StringVar(&flags.engine, "engine", "", "Renderer engine (legacy, commonmark)")
	cmd.Flags().BoolVar(&flags.sanitize, "sanitize", false, "Escape raw HTML in the source")
	cmd.Flags().BoolVar(&flags.wrapLists, "wrap-lists", false, "Group list items into <ul> containers")

	return cmd
}
