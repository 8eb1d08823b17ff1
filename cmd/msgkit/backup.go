package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"msgkit/internal/config"
	"msgkit/internal/loader"
	"msgkit/internal/outbox"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// Archive member names.
const (
	archiveConfig      = "config.json"
	archiveOutbox      = "outbox.db"
	archiveDefinitions = "definitions/"
)

// archiveEntry is a file to add to a backup under an archive name.
type archiveEntry struct {
	src  string
	name string
}

func backupCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of msgkit data (outbox + config + definitions)",
		Long: `Creates a compressed .tar.gz archive containing a snapshot of the outbox
database, the configuration file and the message definitions. The backup is
timestamped by default.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.ExpandPath(resolveConfigPath())
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if outputPath == "" {
				backupDir := filepath.Join(config.DefaultConfigDir(), "backups")
				if err := os.MkdirAll(backupDir, 0o755); err != nil {
					return fmt.Errorf("cannot create backup directory: %w", err)
				}
				ts := time.Now().Format("20060102-150405")
				outputPath = filepath.Join(backupDir, fmt.Sprintf("msgkit-backup-%s.tar.gz", ts))
			}

			tmpDir, err := os.MkdirTemp("", "msgkit-backup-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)

			var entries []archiveEntry

			if _, err := os.Stat(cfg.Outbox.DBPath); err == nil {
				snap := filepath.Join(tmpDir, archiveOutbox)
				if err := snapshotOutbox(cfg.Outbox.DBPath, snap); err != nil {
					return err
				}
				entries = append(entries, archiveEntry{src: snap, name: archiveOutbox})
			}

			if _, err := os.Stat(cfgPath); err == nil {
				entries = append(entries, archiveEntry{src: cfgPath, name: archiveConfig})
			}

			if cfg.General.DefinitionsDir != "" {
				if paths, err := definitionPaths(cfg.General.DefinitionsDir, nil); err == nil {
					for _, p := range paths {
						entries = append(entries, archiveEntry{src: p, name: archiveDefinitions + filepath.Base(p)})
					}
				}
			}

			if len(entries) == 0 {
				return fmt.Errorf("no files to backup (outbox: %s, config: %s)", cfg.Outbox.DBPath, cfgPath)
			}

			if err := createTarGz(outputPath, entries); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			fmt.Printf("Backup created: %s\n", outputPath)
			fmt.Printf("Files included: %d\n", len(entries))
			for _, e := range entries {
				size := uint64(0)
				if info, err := os.Stat(e.src); err == nil {
					size = uint64(info.Size())
				}
				fmt.Printf("  - %s (%s)\n", e.name, humanize.Bytes(size))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: ~/.msgkit/backups/msgkit-backup-<timestamp>.tar.gz)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var inputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore [file.tar.gz]",
		Short: "Restore msgkit data from a backup archive",
		Long: `Restores the outbox database, configuration file and message definitions
from a .tar.gz backup archive created by 'msgkit backup'. Stop 'msgkit serve'
before restoring.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" && len(args) > 0 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return fmt.Errorf("specify a backup file: msgkit restore <file.tar.gz>")
			}

			cfgPath := config.ExpandPath(resolveConfigPath())
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			targets := restoreTargets{
				config:      cfgPath,
				outbox:      cfg.Outbox.DBPath,
				definitions: cfg.General.DefinitionsDir,
			}

			if !force {
				existing := false
				for _, p := range []string{targets.outbox, targets.config} {
					if _, err := os.Stat(p); err == nil {
						existing = true
					}
				}
				if existing {
					fmt.Printf("WARNING: This will overwrite existing data.\n")
					fmt.Printf("  Outbox: %s\n", targets.outbox)
					fmt.Printf("  Config: %s\n", targets.config)
					fmt.Printf("Use --force to skip this warning.\n")
					return fmt.Errorf("restore aborted (use --force to proceed)")
				}
			}

			restored, err := extractTarGz(inputPath, targets)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			fmt.Printf("Restore completed from: %s\n", inputPath)
			fmt.Printf("Files restored: %d\n", len(restored))
			for _, f := range restored {
				fmt.Printf("  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "backup file to restore from")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data without warning")
	return cmd
}

func snapshotOutbox(dbPath, dest string) error {
	store, err := outbox.Open(dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return store.Snapshot(ctx, dest)
}

// createTarGz creates a .tar.gz archive from the given entries.
func createTarGz(outputPath string, entries []archiveEntry) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	for _, e := range entries {
		if err := addFileToTar(tarWriter, e); err != nil {
			return fmt.Errorf("add %s: %w", e.src, err)
		}
	}
	return nil
}

func addFileToTar(tw *tar.Writer, e archiveEntry) error {
	file, err := os.Open(e.src)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = e.name

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	return err
}

type restoreTargets struct {
	config      string
	outbox      string
	definitions string
}

// targetFor maps an archive member to its destination, or "" to skip it.
func (t restoreTargets) targetFor(name string) string {
	name = path.Clean(name)
	switch {
	case name == archiveConfig:
		return t.config
	case name == archiveOutbox:
		return t.outbox
	case strings.HasPrefix(name, archiveDefinitions):
		base := path.Base(name)
		if t.definitions == "" || !loader.IsDefinitionFile(base) {
			return ""
		}
		return filepath.Join(t.definitions, base)
	}
	return ""
}

// extractTarGz extracts the known members of a backup archive.
func extractTarGz(archivePath string, targets restoreTargets) ([]string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("not a valid gzip file: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	var restored []string

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		targetPath := targets.targetFor(header.Name)
		if targetPath == "" {
			logger.Warn("skipping unknown archive member", "name", header.Name)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
			return nil, err
		}
		if targetPath == targets.outbox {
			// Stale WAL files from the replaced database must not be replayed.
			for _, suffix := range []string{"-wal", "-shm"} {
				os.Remove(targetPath + suffix)
			}
		}

		outFile, err := os.Create(targetPath)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", targetPath, err)
		}
		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return nil, fmt.Errorf("extract %s: %w", targetPath, err)
		}
		outFile.Close()

		restored = append(restored, targetPath)
	}

	return restored, nil
}
