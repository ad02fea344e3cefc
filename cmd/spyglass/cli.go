package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/spyglass-mc/spyglass/internal/config"
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/mcp"
	"github.com/spyglass-mc/spyglass/internal/mcproto"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
	"github.com/spyglass-mc/spyglass/internal/store"
	"github.com/spyglass-mc/spyglass/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *store.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "spyglass",
		Usage:   "Discovered Minecraft server browser",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(st, cfg),
			mcpCmd(st, cfg),
			findCmd(st),
			probeCmd(),
			importCmd(st),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command (read-only web UI).
func serveCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Bind address (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			bind := cfg.WebBind
			if v := c.String("bind"); v != "" {
				bind = v
			}
			port := cfg.WebPort
			if v := c.Int("port"); v > 0 {
				port = v
			}
			return web.Run(web.NewServer(st, Version, bind, port))
		},
	}
}

// mcpCmd creates the mcp command (stdio MCP server).
func mcpCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			handlers := mcp.NewHandlers(st, &mcproto.Pinger{})
			return mcp.Run(handlers, Version, cfg.DisabledTools)
		},
	}
}

// findCmd creates the find command.
func findCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "Search the collection and print matching servers as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ip", Usage: "Address substring"},
			&cli.StringFlag{Name: "hostname", Usage: "Hostname substring"},
			&cli.StringFlag{Name: "version", Aliases: []string{"V"}, Usage: "Version name substring"},
			&cli.IntFlag{Name: "protocol", Usage: "Exact protocol number"},
			&cli.IntFlag{Name: "online-gte", Usage: "Minimum online player count"},
			&cli.StringFlag{Name: "player", Usage: "Player UUID seen in the sample"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "MOTD substring"},
			&cli.StringFlag{Name: "country", Usage: "Two-letter country code"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Maximum servers to print"},
		},
		Action: func(c *cli.Context) error {
			d := query.Build(query.FindInput{
				IP:          c.String("ip"),
				Hostname:    c.String("hostname"),
				Version:     c.String("version"),
				Protocol:    c.Int("protocol"),
				OnlineGte:   c.Int("online-gte"),
				PlayerID:    c.String("player"),
				Description: c.String("description"),
				Country:     c.String("country"),
			})

			ctx := c.Context
			total, err := st.Count(ctx, d)
			if err != nil {
				return outputError(err)
			}

			limit := c.Int("limit")
			if limit < 1 {
				limit = 10
			}
			if limit > total {
				limit = total
			}

			servers := make([]*record.Record, 0, limit)
			for i := 0; i < limit; i++ {
				rec, err := st.RecordAt(ctx, d, i)
				if err != nil {
					return outputError(err)
				}
				if rec == nil {
					break
				}
				rec.Favicon = ""
				servers = append(servers, rec)
			}

			return outputJSON(map[string]any{
				"total":   total,
				"servers": servers,
			})
		},
	}
}

// probeCmd creates the probe command.
func probeCmd() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Ping one server and print its live status as JSON",
		ArgsUsage: "<address>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: mcproto.DefaultTimeout, Usage: "Connection timeout"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewMalformedState("address argument is required"))
			}
			ip, port, err := splitAddress(c.Args().First())
			if err != nil {
				return outputError(errors.NewMalformedState(err.Error()))
			}

			pinger := &mcproto.Pinger{Timeout: c.Duration("timeout")}
			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout")+time.Second)
			defer cancel()

			live, err := pinger.Probe(ctx, ip, port)
			if err != nil {
				return outputError(errors.NewProbeFailure(err))
			}
			if live == nil {
				return outputJSON(map[string]any{"online": false})
			}
			live.Favicon = ""
			return outputJSON(map[string]any{"online": true, "server": live})
		},
	}
}

// importCmd creates the import command.
func importCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import server records from a JSON array (file argument or stdin)",
		ArgsUsage: "[file]",
		Action: func(c *cli.Context) error {
			var data []byte
			var err error
			if c.NArg() > 0 {
				data, err = os.ReadFile(c.Args().First())
			} else {
				if !stdinHasData() {
					return outputError(errors.NewMalformedState("records must be piped via stdin or given as a file"))
				}
				data, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			var records []*record.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return outputError(errors.NewMalformedState(err.Error()))
			}

			imported := 0
			for _, rec := range records {
				if rec.IP == "" || rec.Port < 1 || rec.Port > 65535 {
					continue
				}
				if _, err := st.Upsert(c.Context, rec); err != nil {
					return outputError(err)
				}
				imported++
			}

			return outputJSON(map[string]any{
				"imported": imported,
				"skipped":  len(records) - imported,
			})
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := err.(*errors.SpyglassError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// splitAddress parses "ip" or "ip:port", defaulting the port to 25565.
func splitAddress(address string) (string, int, error) {
	if !strings.Contains(address, ":") {
		return address, 25565, nil
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("port out of range: %s", portStr)
	}
	return host, port, nil
}
