package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"msgkit/internal/config"
	"msgkit/internal/domain"
	"msgkit/internal/loader"
	"msgkit/internal/outbox"
	"msgkit/internal/publisher"
	"msgkit/internal/wire"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your msgkit installation",
		Long: `Verifies that the configuration, message definitions, outbox database,
broker and API port are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("msgkit doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, failed, warned := 0, 0, 0

			// 1. Config file exists and validates
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'msgkit init' to create a default configuration.\n")
				return fmt.Errorf("config file missing")
			}
			printPass("Config file", cfgPath)
			passed++

			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				return fmt.Errorf("config invalid")
			}
			printPass("Config validation", "valid")
			passed++

			// 2. Sender defaults
			if cfg.Defaults.From == "" || cfg.Defaults.ApplicationID == "" {
				printWarn("Sender defaults", "defaults.from/applicationId unset; definitions must name them")
				warned++
			} else {
				printPass("Sender defaults", cfg.Defaults.From)
				passed++
			}

			// 3. Request schema compiles
			if _, err := wire.NewContract(); err != nil {
				printFail("Request schema", err.Error())
				failed++
			} else {
				printPass("Request schema", "compiled")
				passed++
			}

			// 4. Definitions load
			if cfg.General.DefinitionsDir != "" {
				switch ok, bad, err := checkDefinitions(cfg); {
				case err != nil:
					printWarn("Definitions", err.Error())
					warned++
				case bad > 0:
					printWarn("Definitions", fmt.Sprintf("%d valid, %d invalid (run 'msgkit validate')", ok, bad))
					warned++
				default:
					printPass("Definitions", fmt.Sprintf("%d valid in %s", ok, cfg.General.DefinitionsDir))
					passed++
				}
			}

			// 5. Outbox database writable
			if cfg.Outbox.Enabled {
				if pending, err := checkOutbox(cfg.Outbox.DBPath); err != nil {
					printFail("Outbox", err.Error())
					failed++
				} else {
					printPass("Outbox", fmt.Sprintf("%s (%d pending)", cfg.Outbox.DBPath, pending))
					passed++
				}
			} else {
				printWarn("Outbox", "disabled; enqueue and relay are unavailable")
				warned++
			}

			// 6. Broker reachable
			if cfg.Broker.URL == "" {
				printWarn("Broker", "no broker.url; relay writes records to the log")
				warned++
			} else if err := checkBroker(cfg); err != nil {
				printFail("Broker", err.Error())
				failed++
			} else {
				printPass("Broker", fmt.Sprintf("exchange %q declared", cfg.Broker.Exchange))
				passed++
			}

			// 7. API port
			if cfg.API.Enabled {
				addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
				if err := checkPort(addr); err != nil {
					printWarn("API port", fmt.Sprintf("%s may be in use: %v", addr, err))
					warned++
				} else {
					printPass("API port", addr+" available")
					passed++
				}
				if cfg.API.APIKey == "" {
					printWarn("API key", "unset; the API accepts unauthenticated requests")
					warned++
				}
			}

			// 8. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running msgkit.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nmsgkit should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! msgkit is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDefinitions(cfg *config.Config) (ok, bad int, err error) {
	paths, err := definitionPaths(cfg.General.DefinitionsDir, nil)
	if err != nil {
		return 0, 0, err
	}
	defs, err := loader.LoadDirectory(cfg.General.DefinitionsDir, cfg.Defaults, logger)
	if err != nil {
		return 0, 0, err
	}
	return len(defs), len(paths) - len(defs), nil
}

// checkOutbox opens (and migrates) the outbox and reports pending records.
func checkOutbox(dbPath string) (int, error) {
	store, err := outbox.Open(dbPath, logger)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		return 0, fmt.Errorf("cannot ping: %w", err)
	}
	if mode, err := store.JournalMode(ctx); err != nil {
		return 0, err
	} else if mode != "wal" {
		return 0, fmt.Errorf("journal mode is %q, want wal", mode)
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		return 0, err
	}
	return counts[domain.OutboxPending], nil
}

func checkBroker(cfg *config.Config) error {
	pub, err := publisher.DialAMQP(publisher.AMQPConfig{
		URL:        cfg.Broker.URL,
		Exchange:   cfg.Broker.Exchange,
		RoutingKey: cfg.Broker.RoutingKey,
		Timeout:    time.Duration(cfg.Broker.PublishTimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		return err
	}
	return pub.Close()
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
