package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pavelanni/nojgrade/internal/noj"
	"github.com/pavelanni/nojgrade/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load judge API exports into the local database",
	}

	subs := &cobra.Command{
		Use:   "submissions FILE...",
		Short: "Import submission lists",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, func(db *store.Store, data []byte) (int, error) {
				recs, err := noj.DecodeSubmissions(data)
				if err != nil {
					return 0, err
				}
				return len(recs), db.UpsertSubmissions(recs)
			})
		},
	}

	homeworks := &cobra.Command{
		Use:   "homeworks FILE...",
		Short: "Import the homework list of a course",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			course, _ := cmd.Flags().GetString("course")
			return runImport(cmd, args, func(db *store.Store, data []byte) (int, error) {
				hws, err := noj.DecodeHomeworks(course, data)
				if err != nil {
					return 0, err
				}
				for _, hw := range hws {
					if err := db.UpsertHomework(hw); err != nil {
						return 0, fmt.Errorf("store homework %s: %w", hw.Key(), err)
					}
				}
				return len(hws), nil
			})
		},
	}
	homeworks.Flags().String("course", "", "Course the homeworks belong to (required)")
	_ = homeworks.MarkFlagRequired("course")

	problems := &cobra.Command{
		Use:   "problems FILE...",
		Short: "Import problem names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args, func(db *store.Store, data []byte) (int, error) {
				ps, err := noj.DecodeProblems(data)
				if err != nil {
					return 0, err
				}
				return len(ps), db.UpsertProblems(ps)
			})
		},
	}

	for _, sub := range []*cobra.Command{subs, homeworks, problems} {
		f := sub.Flags()
		f.Bool("force", false, "Import even if the file is unchanged since the last import")
		addCommonFlags(f)
		cmd.AddCommand(sub)
	}
	return cmd
}

// runImport loads each file unless its content hash matches the one stored
// at its last import.
func runImport(cmd *cobra.Command, paths []string, load func(*store.Store, []byte) (int, error)) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	force := v.GetBool("force")
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		key, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(key)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash && !force {
			slog.Info("file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" && storedHash != hash {
			slog.Info("file changed since last import, re-importing", "path", path)
		}

		n, err := load(db, data)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		if err := db.SetImportedFileHash(key, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported", "kind", cmd.Name(), "path", path, "count", n)
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
