package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"msgkit/internal/domain"
	"msgkit/internal/loader"
	"msgkit/internal/model"
	"msgkit/internal/wire"

	"github.com/spf13/cobra"
)

// definitionPaths returns args, or every definition file in the configured
// directory when no args are given.
func definitionPaths(dir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && loader.IsDefinitionFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func printFindings(w io.Writer, err error) {
	findings := domain.Flatten(err)
	if len(findings) == 0 {
		fmt.Fprintf(w, "    %v\n", err)
		return
	}
	for _, f := range findings {
		fmt.Fprintf(w, "    [%s] %s\n", f.Kind, f.Error())
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate message definitions (defaults to the definitions directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			paths, err := definitionPaths(cfg.General.DefinitionsDir, args)
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range paths {
				req, err := loader.LoadFile(path, cfg.Defaults)
				if err == nil {
					_, err = a.dispatcher.Render(req)
				} else {
					a.dispatcher.Observe(err)
				}
				if err != nil {
					failed++
					fmt.Printf("  [FAIL] %s\n", path)
					printFindings(os.Stdout, err)
					continue
				}
				fmt.Printf("  [ OK ] %s (%s)\n", path, channelList(req))
			}

			fmt.Printf("\n%d valid, %d invalid\n", len(paths)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d definition(s) invalid", failed)
			}
			return nil
		},
	}
}

func channelList(req *model.Request) string {
	var names []string
	for _, ch := range req.Channels() {
		names = append(names, string(ch))
	}
	return strings.Join(names, ", ")
}

func renderCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Print the wire JSON of a message definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			req, err := loader.LoadFile(args[0], cfg.Defaults)
			if err != nil {
				return err
			}
			var out []byte
			if compact {
				out, err = wire.Encode(req)
			} else {
				out, err = wire.EncodeIndent(req)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "single-line output")
	return cmd
}

func enqueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <file...>",
		Short: "Validate definitions and store them in the outbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireOutbox(); err != nil {
				return err
			}

			ctx := cmd.Context()
			for _, path := range args {
				req, err := loader.LoadFile(path, cfg.Defaults)
				if err != nil {
					return err
				}
				rec, err := a.dispatcher.Submit(ctx, req)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.ID, path)
			}
			return nil
		},
	}
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect stored requests",
	}

	var status string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List outbox records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireOutbox(); err != nil {
				return err
			}

			records, err := a.store.List(cmd.Context(), domain.OutboxStatus(status), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tTO\tCHANNELS\tTAG\tATTEMPTS\tCREATED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.Status, r.To, strings.Join(r.Channels, ","), r.Tag, r.Attempts,
					r.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status (pending|published)")
	list.Flags().IntVar(&limit, "limit", 50, "maximum records")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one record with its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireOutbox(); err != nil {
				return err
			}

			rec, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			view := struct {
				domain.OutboxRecord
				Payload json.RawMessage `json:"payload"`
			}{*rec, rec.Payload}
			data, _ := json.MarshalIndent(view, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	return cmd
}

func relayCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Publish pending outbox records to the broker",
		Long: "Makes one pass over pending records in order and stops at the first failure.\n" +
			"With --watch it keeps draining until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireOutbox(); err != nil {
				return err
			}

			pub, err := a.publisher(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer pub.Close()
			relay := a.relay(pub)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				relay.Run(ctx, time.Duration(cfg.Outbox.RelayIntervalSeconds)*time.Second)
				return nil
			}
			n, err := relay.Drain(ctx)
			logger.Info("relay finished", "published", n)
			return err
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep relaying until interrupted")
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of request documents",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.OutOrStdout().Write(wire.RequestSchema())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox relay",
		Long:  "Starts the HTTP API and relays pending records to the broker. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, a)
}
