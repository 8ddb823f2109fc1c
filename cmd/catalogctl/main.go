package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/cesargomez89/iptvcatalog/internal/app"
	"github.com/cesargomez89/iptvcatalog/internal/catalog"
	"github.com/cesargomez89/iptvcatalog/internal/config"
	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/domain"
	"github.com/cesargomez89/iptvcatalog/internal/httpclient"
	"github.com/cesargomez89/iptvcatalog/internal/loader"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
	"github.com/cesargomez89/iptvcatalog/internal/source"
	"github.com/cesargomez89/iptvcatalog/internal/store"
)

var (
	cfg    *config.Config
	dbPath string
	page   int
	limit  int
	all    bool
	from   int
	count  int
)

func main() {
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Inspect and populate the IPTV catalog database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DBPath, "path of the catalog database")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(streamsCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(statusCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session bundles the services a command works with.
type session struct {
	handle  *store.Handle
	imports *app.ImportService
	query   *catalog.QueryService
}

func openSession(ctx context.Context) (*session, error) {
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	handle := store.NewSQLiteHandle(dbPath)
	db, err := handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := httpclient.NewClient(&http.Client{Timeout: cfg.PlaylistTimeout}, constants.DefaultRequestRate).
		WithRetry(constants.DefaultRetryCount, constants.DefaultRetryBase)
	gate := catalog.NewGate()

	return &session{
		handle: handle,
		imports: app.NewImportService(db, source.NewPlaylistClient(client), gate, source.Credentials{
			URL:      cfg.PlaylistURL,
			Username: cfg.PlaylistUsername,
			Password: cfg.PlaylistPassword,
		}, log),
		query: catalog.NewQueryService(db, gate),
	}, nil
}

func (s *session) Close() error {
	return s.handle.Close()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func importCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import [payload-file]",
		Short: "Import the playlist, from the configured source or a local JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var run *domain.ImportRun
			if len(args) == 1 {
				run, err = s.imports.ImportFile(ctx, args[0], force)
			} else {
				run, err = s.imports.Enqueue(ctx, force)
				if err == nil {
					err = s.imports.Run(ctx, run)
					if final, getErr := s.imports.GetRun(context.WithoutCancel(ctx), run.ID); getErr == nil {
						run = final
					}
				}
			}
			if run != nil {
				if pErr := printJSON(cmd.OutOrStdout(), run); pErr != nil {
					return pErr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "clear the catalog and reimport even if it is populated")
	return cmd
}

// addPageFlags registers the flags shared by the paginated listings.
func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultPageSize, "items per page")
	cmd.Flags().BoolVar(&all, "all", false, "load every page")
	cmd.Flags().IntVar(&from, "from", -1, "first index of a window to show")
	cmd.Flags().IntVar(&count, "count", constants.DefaultPageSize, "number of items in the window")
}

// listPages prints a single page, every page through a Loader, or a window
// of items through a Window, depending on the flags.
func listPages[T any](ctx context.Context, w io.Writer, fetch loader.FetchFunc[T]) error {
	switch {
	case from >= 0:
		win := loader.NewWindow(fetch, limit)
		if err := win.Ensure(ctx, from, from+count); err != nil {
			return err
		}
		items, _ := win.Slice(from, from+count)
		total, _ := win.Total()
		return printJSON(w, map[string]any{"items": items, "from": from, "total": total})

	case all:
		l := loader.New(fetch, limit)
		if err := l.LoadFirstPage(ctx); err != nil {
			return err
		}
		for l.State().HasMore {
			if err := l.LoadMore(ctx); err != nil {
				return err
			}
		}
		st := l.State()
		return printJSON(w, map[string]any{"items": st.Items, "pages": st.CurrentPage})

	default:
		items, p, err := fetch(ctx, page, limit)
		if err != nil {
			return err
		}
		return printJSON(w, map[string]any{"items": items, "pagination": p})
	}
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories <stream-type>",
		Short: "List the categories of a stream type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			streamType := domain.StreamType(args[0])
			return listPages(ctx, cmd.OutOrStdout(), func(ctx context.Context, page, limit int) ([]domain.Category, domain.Pagination, error) {
				res, err := s.query.CategoriesPage(ctx, streamType, page, limit)
				if err != nil {
					return nil, domain.Pagination{}, err
				}
				return res.Categories, res.Pagination, nil
			})
		},
	}
	addPageFlags(cmd)
	return cmd
}

func streamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streams <category-id>",
		Short: "List the streams of a category, e.g. vod_10",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			categoryID := args[0]
			return listPages(ctx, cmd.OutOrStdout(), func(ctx context.Context, page, limit int) ([]domain.Stream, domain.Pagination, error) {
				res, err := s.query.StreamsPageByCategory(ctx, categoryID, page, limit)
				if err != nil {
					return nil, domain.Pagination{}, err
				}
				return res.Streams, res.Pagination, nil
			})
		},
	}
	addPageFlags(cmd)
	return cmd
}

func searchCmd() *cobra.Command {
	var streamType string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search streams by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			streams, err := s.query.SearchStreams(ctx, args[0], domain.StreamType(streamType), maxResults)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), streams)
		},
	}

	cmd.Flags().StringVarP(&streamType, "type", "t", "", "restrict results to one stream type")
	cmd.Flags().IntVarP(&maxResults, "limit", "n", constants.MaxSearchResults, "maximum number of results")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog counts and the latest import",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.imports.Status(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}
