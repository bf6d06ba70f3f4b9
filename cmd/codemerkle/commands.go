package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codemerkle/internal/indexer"
	"github.com/dshills/codemerkle/internal/storage"
	"github.com/dshills/codemerkle/internal/walker"
)

var (
	forceReindex  bool
	keepSnapshots int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a workspace and print run statistics as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, store, err := openIndexer()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := idx.IndexWorkspace(cmd.Context(), workspaceArg(args), indexer.Options{ForceReindex: forceReindex})
		if err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Show files changed since the last snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, store, err := openIndexer()
		if err != nil {
			return err
		}
		defer store.Close()

		diff, err := idx.DiffWorkspace(cmd.Context(), workspaceArg(args))
		if err != nil {
			return err
		}
		if !diff.HasSnapshot {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshot stored; every file is new.")
		}
		fmt.Fprint(cmd.OutOrStdout(), diff.Summary)
		if len(diff.Changes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [path]",
	Short: "Print stored snapshot status for a workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		root, err := walker.ResolveRoot(workspaceArg(args))
		if err != nil {
			return err
		}
		status, err := store.GetStatus(cmd.Context(), root)
		if err != nil {
			return fmt.Errorf("%s: %w", root, err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Workspace:      %s\n", status.WorkspacePath)
		fmt.Fprintf(w, "Snapshots:      %d\n", status.SnapshotCount)
		fmt.Fprintf(w, "Latest run:     %s\n", status.LatestRunID)
		fmt.Fprintf(w, "Root hash:      %s\n", status.RootHash)
		fmt.Fprintf(w, "Files:          %d (%d directories, %d bytes)\n", status.FilesCount, status.DirsCount, status.TotalSize)
		fmt.Fprintf(w, "Chunks:         %d\n", status.ChunksCount)
		fmt.Fprintf(w, "Last indexed:   %s (%s)\n", status.LastIndexedAt.Format(time.RFC3339), status.LastDuration)
		fmt.Fprintf(w, "Schema version: %s\n", status.SchemaVersion)
		fmt.Fprintf(w, "Consistent:     %v\n", status.Health.ChunksConsistent)
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune [path]",
	Short: "Delete all but the newest snapshots of a workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		root, err := walker.ResolveRoot(workspaceArg(args))
		if err != nil {
			return err
		}
		removed, err := store.PruneSnapshots(cmd.Context(), root, keepSnapshots)
		if err != nil {
			return fmt.Errorf("%s: %w", root, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snapshot(s)\n", removed)
		return nil
	},
}

func workspaceArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func openStorage() (*storage.SQLiteStorage, error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return storage.NewSQLiteStorage(dbPath)
}

func openIndexer() (*indexer.Indexer, *storage.SQLiteStorage, error) {
	idxCfg, err := cfg.IndexerConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStorage()
	if err != nil {
		return nil, nil, err
	}
	idx, err := indexer.New(idxCfg, store, logger.Named("indexer"))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return idx, store, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
