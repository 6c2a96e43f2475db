package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/funnelmkt/internal/api"
	"github.com/hpungsan/funnelmkt/internal/cms"
	"github.com/hpungsan/funnelmkt/internal/config"
	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/db"
	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/logging"
	"github.com/hpungsan/funnelmkt/internal/ops"
	"github.com/hpungsan/funnelmkt/internal/registry"
	"github.com/hpungsan/funnelmkt/internal/web"
)

// maxStdinBytes caps JSON read from stdin.
const maxStdinBytes = 10 << 20

// env carries what the commands run against.
type env struct {
	baseDir string
	db      *sql.DB
	cfg     *config.Config
	logger  *zap.Logger
	// launch overrides the browser launcher for `cms preview`.
	launch func(ctx context.Context, target string) error
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "funnel",
		Usage:   "Marketing funnel admin: CRM, CMS and analytics",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Log at debug level"},
		},
		Before: func(c *cli.Context) error {
			if !c.Bool("debug") {
				return nil
			}
			logger, err := logging.New("debug")
			if err != nil {
				return err
			}
			e.logger = logger
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(e),
			registryCmd(e),
			mcpCmd(e),
			clientsCmd(e),
			cmsCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the admin UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to listen on (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
			&cli.StringFlag{Name: "registry-url", Usage: `Client registry base URL; "local" keeps clients in memory`},
		},
		Action: func(c *cli.Context) error {
			cfg := serveConfig(e.cfg, c)
			store, err := newStore(c.Context, cfg, e.logger)
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			srv := web.NewServer(web.Options{
				Config:  cfg,
				Store:   store,
				Logger:  e.logger,
				Version: Version,
			})
			return web.Run(srv, e.logger)
		},
	}
}

// serveConfig overlays the serve flags on a copy of cfg.
func serveConfig(base *config.Config, c *cli.Context) *config.Config {
	overlay := &config.Config{}
	if c.IsSet("bind") {
		overlay.Bind = c.String("bind")
	}
	if c.IsSet("port") {
		overlay.Port = c.Int("port")
	}
	cfg := config.Merge(base, overlay)
	if c.IsSet("registry-url") {
		cfg.APIBaseURL = c.String("registry-url")
	}
	return cfg
}

// newStore builds the CRM store for the admin UI. With a registry configured
// creates go through it and the current clients are loaded best effort; an
// unreachable registry leaves the list empty.
func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*crm.Store, error) {
	opts := []crm.Option{crm.WithPageSize(cfg.PageSize)}
	if cfg.LocalOnly() {
		logger.Info("no registry configured, clients are kept in memory")
		return crm.NewStore(opts...), nil
	}

	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second
	client, err := registry.New(registry.Config{BaseURL: cfg.APIBaseURL, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	store := crm.NewStore(append(opts, crm.WithRegistry(client))...)

	records, err := client.ListClients(ctx)
	if err != nil {
		logger.Warn("could not load clients from registry",
			zap.String("url", client.BaseURL()), zap.Error(err))
		return store, nil
	}
	store.Load(records)
	logger.Info("loaded clients from registry",
		zap.String("url", client.BaseURL()), zap.Int("count", len(records)))
	return store, nil
}

// registryCmd creates the registry command.
func registryCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "registry",
		Usage: "Serve the client registry REST API over the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to listen on (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default registry_port)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := e.cfg.Bind, e.cfg.RegistryPort
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}
			n, err := db.Count(c.Context, e.db)
			if err != nil {
				return outputError(err)
			}
			e.logger.Info("registry database opened", zap.Int("clients", n))
			return web.Run(api.NewServer(e.db, e.logger, bind, port), e.logger)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the client tools over MCP on stdio",
		Action: func(_ *cli.Context) error {
			return runMCP(e)
		},
	}
}

// clientsCmd creates the clients command group.
func clientsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "clients",
		Usage: "Work with the clients in the registry database",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a client (reads the JSON payload from stdin)",
				Action: func(c *cli.Context) error {
					if !stdinHasData() {
						return outputError(errors.NewInvalidRequest("client JSON must be piped via stdin"))
					}
					data, err := readStdin(maxStdinBytes)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					var payload crm.Payload
					if err := json.Unmarshal([]byte(data), &payload); err != nil {
						return outputError(errors.NewInvalidRequest("invalid client JSON: " + err.Error()))
					}

					output, err := ops.Create(c.Context, e.db, payload)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "show",
				Usage:     "Show one client",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.Fetch(c.Context, e.db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List clients in order, one page at a time",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by name, company or industry"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.IntFlag{Name: "page-size", Usage: "Clients per page (default from config)"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.List(c.Context, e.db, e.cfg.PageSize, ops.ListInput{
						Query:    c.String("query"),
						Page:     c.Int("page"),
						PageSize: c.Int("page-size"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "search",
				Usage:     "Find clients by name, company or industry",
				ArgsUsage: "<query>",
				Action: func(c *cli.Context) error {
					output, err := ops.Search(c.Context, e.db, strings.Join(c.Args().Slice(), " "))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "segment",
				Usage: "Find clients by location, interest and purchase behavior",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "location", Aliases: []string{"l"}},
					&cli.StringFlag{Name: "interests", Aliases: []string{"i"}},
					&cli.StringFlag{Name: "purchase-behavior", Aliases: []string{"b"}},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.Segment(c.Context, e.db, crm.SegmentPredicate{
						Location:         c.String("location"),
						Interests:        c.String("interests"),
						PurchaseBehavior: c.String("purchase-behavior"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "stage",
				Usage:     "Move a client to a pipeline stage",
				ArgsUsage: "<id> <stage>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("usage: funnel clients stage <id> <stage>"))
					}
					args := c.Args().Slice()
					output, err := ops.Stage(c.Context, e.db, args[0], strings.Join(args[1:], " "))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "reorder",
				Usage:     "Move a client to the position of another",
				ArgsUsage: "<from-id> <to-id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("usage: funnel clients reorder <from-id> <to-id>"))
					}
					output, err := ops.Reorder(c.Context, e.db, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "stats",
				Usage: "Pipeline statistics and headline cards",
				Action: func(c *cli.Context) error {
					output, err := ops.Stats(c.Context, e.db, time.Now())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// cmsCmd creates the cms command group.
func cmsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "cms",
		Usage: "Work with landing page documents",
		Subcommands: []*cli.Command{
			{
				Name:  "preview",
				Usage: "Open a page document in the system browser (reads JSON from stdin)",
				Action: func(c *cli.Context) error {
					if !stdinHasData() {
						return outputError(errors.NewInvalidRequest("page JSON must be piped via stdin"))
					}
					data, err := readStdin(maxStdinBytes)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					// Accepts both a bare document and the GET /cms state.
					var doc cms.Document
					if err := json.Unmarshal([]byte(data), &doc); err != nil {
						return outputError(errors.NewInvalidRequest("invalid page JSON: " + err.Error()))
					}

					opener := &cms.BrowserOpener{
						Dir:    filepath.Join(e.baseDir, db.PreviewsDir),
						Launch: e.launch,
					}
					wizard := cms.NewWizard(opener, nil)
					if err := wizard.Load(doc); err != nil {
						return outputError(err)
					}
					p, err := wizard.Preview(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]string{"id": p.ID, "location": p.Location})
				},
			},
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

// outputError formats error for CLI. Validation failures list each field.
func outputError(err error) error {
	var fErr *errors.FunnelError
	if !stderrors.As(err, &fErr) {
		return cli.Exit(err.Error(), 1)
	}
	msg := fmt.Sprintf("[%s] %s", fErr.Code, fErr.Message)
	if fields := errors.FieldErrors(err); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			msg += fmt.Sprintf("\n  %s: %s", name, fields[name])
		}
	}
	return cli.Exit(msg, 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
