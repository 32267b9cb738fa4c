package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tasksync/internal/placeholder"
)

func newPostsCommand(opts *globalOptions) *cobra.Command {
	var (
		pages   int
		limit   int
		search  string
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Browse JSONPlaceholder posts",
		Long: `Fetch posts from JSONPlaceholder, page by page.

Examples:
  tasksync posts
  tasksync posts --pages 3 --search dolor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			client := placeholder.NewClient(baseURL, nil)
			b := placeholder.NewBrowser(client, limit)
			defer b.Close()

			ctx := cmd.Context()
			if err := b.Load(ctx, 1); err != nil {
				return err
			}
			for b.Page() < pages {
				if err := b.LoadMore(ctx); err != nil {
					return err
				}
			}

			clientLogger(cmd.ErrOrStderr(), cfg).Debug("loaded posts", "pages", b.Page(), "count", len(b.Items()))

			out := cmd.OutOrStdout()
			for _, p := range b.Filter(search) {
				_, _ = fmt.Fprintf(out, "#%d %s\n    %s\n", p.ID, p.Title, p.Body)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	cmd.Flags().IntVar(&limit, "limit", placeholder.DefaultPageSize, "posts per page")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only show posts whose title or body contains this")
	cmd.Flags().StringVar(&baseURL, "url", placeholder.DefaultBaseURL, "JSONPlaceholder base URL")
	return cmd
}
