// Package cli implements the platelog command line interface.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/platelog/internal/config"
	"github.com/roach88/platelog/internal/dispatch"
	"github.com/roach88/platelog/internal/remote"
	"github.com/roach88/platelog/internal/store"
	"github.com/roach88/platelog/internal/syncer"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the platelog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "platelog",
		Short: "Local-first food log with spreadsheet sync",
		Long: `platelog keeps a local append-only event log of everything you eat and
reconciles it with a shared spreadsheet. Works fully offline; pending
entries sync on the next connected cycle.`,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.platelog.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewAgainCommand(opts))
	cmd.AddCommand(NewFeedCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewResyncCommand(opts))

	return cmd
}

// app wires the component graph for one command invocation: config,
// event store, dispatcher (rehydrated from the store), cursor store,
// remote adapter, sync manager.
type app struct {
	cfg        config.Config
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	syncer     *syncer.Manager
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.EnsureDataDir()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(dataDir, cfg.Context)
	if err != nil {
		return nil, err
	}

	d := dispatch.New(st)
	if err := d.Rehydrate(cmd.Context()); err != nil {
		st.Close()
		return nil, err
	}

	cursors := syncer.OpenCursorStore(filepath.Join(dataDir, "cursors"))
	sheets := remote.NewSheetsClient(remote.StaticToken(cfg.AccessToken))
	mgr := syncer.New(d, st, sheets, cursors, cfg.SpreadsheetID,
		syncer.WithSheet(cfg.SheetName))

	return &app{
		cfg:        cfg,
		store:      st,
		dispatcher: d,
		syncer:     mgr,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func requireRemote(a *app) error {
	if a.cfg.SpreadsheetID == "" {
		return fmt.Errorf("no spreadsheet configured: set spreadsheet_id in the config file")
	}
	return nil
}
