package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/shelves/internal/catalog"
	"github.com/llehouerou/shelves/internal/library"
	"github.com/llehouerou/shelves/internal/notify"
	"github.com/llehouerou/shelves/internal/reconcile"
	"github.com/llehouerou/shelves/internal/store"
)

func newRootCommand() *cobra.Command {
	return buildRootCommand(nil)
}

func buildRootCommand(newSource sourceFunc) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag, newSource)

	rootCmd := &cobra.Command{
		Use:           "shelves",
		Short:         "Keep a hand-ordered music library in step with the files on disk",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.syncLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newTreeCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newMoveCommand(ctx))
	rootCmd.AddCommand(newRenameCommand(ctx))

	return rootCmd
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the library with the catalog once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				d, _, err := ctx.newDriver(st, nil)
				if err != nil {
					return err
				}
				res, err := d.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeResult(res))
				return nil
			})
		},
	}
}

func describeResult(res *reconcile.Result) string {
	switch {
	case res.Skipped:
		return "Catalog unavailable; library left untouched."
	case !res.Committed:
		return "Library already up to date."
	}
	return "Library updated: " + formatStats(res.Stats)
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reconcile now, then again whenever the catalog changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ctx.withStore(func(st *store.Store) error {
				failed := make(chan error, 1)
				d, source, err := ctx.newDriver(st, func(err error) {
					select {
					case failed <- err:
					default:
					}
				})
				if err != nil {
					return err
				}

				g, gctx := errgroup.WithContext(runCtx)

				var changes <-chan struct{}
				if n, ok := source.(catalog.Notifier); ok {
					changes = n.Changes()
				} else {
					w := catalog.NewWatcher(cfg.LibrarySources, cfg.GetWatchDebounce(), log)
					changes = w.Changes()
					g.Go(func() error { return w.Run(gctx) })
				}

				notifier := notify.Discard
				if cfg.Notify.Enabled {
					if notifier, err = notify.New(); err != nil {
						log.Warn("desktop notifications unavailable", zap.Error(err))
						notifier = notify.Discard
					}
				}
				reporter := notify.NewReporter(notifier, log)

				done := d.Subscribe()
				g.Go(func() error {
					reportPasses(gctx, d, done, failed, cmd.OutOrStdout(), reporter)
					return nil
				})
				g.Go(func() error { return d.Run(gctx, changes) })

				d.Trigger()
				log.Info("watching library sources", zap.Strings("sources", cfg.LibrarySources))

				err = g.Wait()
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

// reportPasses prints the outcome of every pass Run executes and mirrors it
// as a desktop notification. The notification is withdrawn on shutdown.
func reportPasses(ctx context.Context, d *reconcile.Driver, done <-chan struct{}, failed <-chan error, out io.Writer, reporter *notify.Reporter) {
	defer reporter.Dismiss()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-failed:
			fmt.Fprintln(out, "Library update failed:", err)
			reporter.Failed(err)
		case <-done:
			res := d.LastCommitted()
			if res == nil {
				continue
			}
			fmt.Fprintln(out, describeResult(res))
			reporter.Updated(libraryChanges(res.Stats))
		}
	}
}

func libraryChanges(s reconcile.Stats) notify.LibraryChanges {
	return notify.LibraryChanges{
		Added:   s.Created,
		Removed: s.Deleted,
		Moved:   s.Relocated,
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var folderPos, albumPos int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List folders and albums, or the songs of one album",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				lib, err := st.Load(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if albumPos > 0 {
					a, err := albumAt(lib, folderPos, albumPos)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderSongs(a))
					return nil
				}
				folders := lib.Folders()
				if folderPos > 0 {
					f, err := folderAt(lib, folderPos)
					if err != nil {
						return err
					}
					folders = []*library.Folder{f}
				}
				if len(folders) == 0 {
					fmt.Fprintln(out, "Library is empty.")
					return nil
				}
				fmt.Fprintln(out, renderAlbums(folders))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&folderPos, "folder", "f", 0, "Only show this folder (1-based)")
	cmd.Flags().IntVarP(&albumPos, "album", "a", 0, "Show the songs of this album of --folder (1-based)")
	return cmd
}

func newTreeCommand(ctx *commandContext) *cobra.Command {
	var songs bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the library hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				lib, err := st.Load(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTree(lib, songs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&songs, "songs", "s", false, "Include songs")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library counts and the last reconciliation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				status, err := st.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
				return nil
			})
		},
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Reorder folders, albums or songs by hand",
	}

	var by, folderPos, albumPos int

	run := func(cmd *cobra.Command, args []string, fn func(*library.Library, []int) ([]int, error)) error {
		if by == 0 {
			return errors.New("--by must be non-zero")
		}
		positions, err := parsePositions(args)
		if err != nil {
			return err
		}
		return ctx.withStore(func(st *store.Store) error {
			var moved []int
			err := st.Update(cmd.Context(), func(lib *library.Library) error {
				var err error
				moved, err = fn(lib, positions)
				if err != nil {
					return err
				}
				if slices.Equal(moved, positions) {
					return errNothingMoved
				}
				return nil
			})
			out := cmd.OutOrStdout()
			if errors.Is(err, errNothingMoved) {
				fmt.Fprintln(out, "Nothing moved: the block would leave its container.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Moved to %s.\n", formatPositions(moved))
			return nil
		})
	}

	foldersCmd := &cobra.Command{
		Use:   "folders <position>...",
		Short: "Move folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, func(lib *library.Library, positions []int) ([]int, error) {
				return lib.MoveFolders(positions, by)
			})
		},
	}

	albumsCmd := &cobra.Command{
		Use:   "albums <position>...",
		Short: "Move albums inside a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, func(lib *library.Library, positions []int) ([]int, error) {
				f, err := folderAt(lib, folderPos)
				if err != nil {
					return nil, err
				}
				return f.MoveAlbums(positions, by)
			})
		},
	}
	albumsCmd.Flags().IntVarP(&folderPos, "folder", "f", 0, "Folder holding the albums (1-based)")
	_ = albumsCmd.MarkFlagRequired("folder")

	songsCmd := &cobra.Command{
		Use:   "songs <position>...",
		Short: "Move songs inside an album",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, func(lib *library.Library, positions []int) ([]int, error) {
				a, err := albumAt(lib, folderPos, albumPos)
				if err != nil {
					return nil, err
				}
				return a.MoveSongs(positions, by)
			})
		},
	}
	songsCmd.Flags().IntVarP(&folderPos, "folder", "f", 0, "Folder holding the album (1-based)")
	songsCmd.Flags().IntVarP(&albumPos, "album", "a", 0, "Album holding the songs (1-based)")
	_ = songsCmd.MarkFlagRequired("folder")
	_ = songsCmd.MarkFlagRequired("album")

	for _, c := range []*cobra.Command{foldersCmd, albumsCmd, songsCmd} {
		c.Flags().IntVar(&by, "by", 0, "Positions to move; negative moves up")
		_ = c.MarkFlagRequired("by")
		moveCmd.AddCommand(c)
	}

	return moveCmd
}

var errNothingMoved = errors.New("nothing moved")

func newRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder> <title>",
		Short: "Rename a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid folder position %q", args[0])
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return errors.New("folder title cannot be empty")
			}
			return ctx.withStore(func(st *store.Store) error {
				var old string
				err := st.Update(cmd.Context(), func(lib *library.Library) error {
					f, err := folderAt(lib, pos)
					if err != nil {
						return err
					}
					old = f.Title
					f.Rename(title)
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q.\n", old, title)
				return nil
			})
		},
	}
}

// parsePositions converts 1-based command-line positions to indices.
func parsePositions(args []string) ([]int, error) {
	positions := make([]int, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid position %q", arg)
		}
		positions = append(positions, n-1)
	}
	return positions, nil
}

func folderAt(lib *library.Library, pos int) (*library.Folder, error) {
	folders := lib.Folders()
	if pos < 1 || pos > len(folders) {
		return nil, fmt.Errorf("no folder at position %d (library has %d)", pos, len(folders))
	}
	return folders[pos-1], nil
}

func albumAt(lib *library.Library, folderPos, albumPos int) (*library.Album, error) {
	f, err := folderAt(lib, folderPos)
	if err != nil {
		return nil, err
	}
	albums := f.Albums()
	if albumPos < 1 || albumPos > len(albums) {
		return nil, fmt.Errorf("no album at position %d in %q (folder has %d)", albumPos, f.Title, len(albums))
	}
	return albums[albumPos-1], nil
}
