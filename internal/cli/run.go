package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/config"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/aretw0/concierge/internal/presentation/tui"
	httpAdapter "github.com/aretw0/concierge/pkg/adapters/http"
	"github.com/aretw0/concierge/pkg/adapters/mcp"
	"github.com/aretw0/concierge/pkg/adapters/sqlite"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/session"
	"github.com/muesli/termenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"
)

// ChatOptions configures the chat command.
type ChatOptions struct {
	ConfigPath string
	Domain     string
	Debug      bool
	Plain      bool // no colors, banner or markdown rendering
}

// RunChat runs an interactive conversation on the terminal.
func RunChat(opts ChatOptions) error {
	d, err := domain.ParseDomain(opts.Domain)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	logger := createLogger(cfg.Log, opts.Debug, true)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	stack, err := NewStack(sigCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	interactive := !opts.Plain && term.IsTerminal(int(os.Stdout.Fd()))
	printerOpts := []tui.PrinterOption{}
	if interactive {
		width, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			width = 80
		}
		profile := termenv.ColorProfile()
		tui.PrintBanner(os.Stdout, profile, concierge.Version)
		printerOpts = append(printerOpts, tui.WithProfile(profile), tui.WithMarkdown(tui.NewRenderer(width)))
	}

	chat := NewChat(os.Stdin, tui.NewPrinter(os.Stdout, printerOpts...))
	conv, err := stack.NewConversation("", chat.Hooks())
	if err != nil {
		return err
	}
	defer conv.Close()

	if err := chat.Run(sigCtx, conv, d); err != nil {
		return err
	}
	if sigCtx.Signal() != nil {
		fmt.Println()
	}
	return nil
}

// ServeOptions configures the serve command.
type ServeOptions struct {
	ConfigPath string
	Addr       string // overrides server.addr when set
	Debug      bool
}

// RunServe starts the HTTP API and blocks until SIGINT or SIGTERM.
func RunServe(opts ServeOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	logger := createLogger(cfg.Log, opts.Debug, false)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	stack, err := NewStack(sigCtx, cfg, logger, WithRegisterer(registry))
	if err != nil {
		return err
	}
	defer stack.Close()

	streams := httpAdapter.NewStreamManager(logger)
	sessions := session.NewManager(
		func(id string) (*concierge.Conversation, error) {
			return stack.NewConversation(id, streams.Hooks())
		},
		session.WithLogger(logger),
		session.WithMaxSessions(cfg.Server.MaxSessions),
		session.WithOnClose(streams.Forget),
	)
	defer sessions.CloseAll()

	if cfg.Server.SessionIdle > 0 && cfg.Server.ReapInterval > 0 {
		go sessions.Run(sigCtx, cfg.Server.ReapInterval, cfg.Server.SessionIdle)
	}

	handler := httpAdapter.NewServer(sessions, streams,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	).Handler()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("concierge server listening", "addr", srv.Addr, "backend", cfg.Backend.BaseURL)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-sigCtx.Done():
		logger.Info("shutting down", "signal", sigCtx.Signal())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("server stopped gracefully")
		return nil
	}
}

// MCPOptions configures the mcp command.
type MCPOptions struct {
	ConfigPath string
	Transport  string // stdio or sse
	Addr       string // SSE only
	Debug      bool
}

// RunMCP serves the session tools over MCP.
func RunMCP(opts MCPOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
	logger := createLogger(cfg.Log, opts.Debug, false)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	stack, err := NewStack(sigCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	sessions := session.NewManager(
		func(id string) (*concierge.Conversation, error) { return stack.NewConversation(id) },
		session.WithLogger(logger),
		session.WithMaxSessions(cfg.Server.MaxSessions),
	)
	defer sessions.CloseAll()
	if cfg.Server.SessionIdle > 0 && cfg.Server.ReapInterval > 0 {
		go sessions.Run(sigCtx, cfg.Server.ReapInterval, cfg.Server.SessionIdle)
	}

	srv := mcp.NewServer(sessions, mcp.WithLogger(logger))

	switch opts.Transport {
	case "", "stdio":
		logger.Info("starting concierge MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		addr := opts.Addr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		baseURL := "http://" + addr
		if strings.HasPrefix(addr, ":") {
			baseURL = "http://localhost" + addr
		}
		err := srv.ServeSSE(sigCtx, addr, baseURL)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", opts.Transport)
	}
}

// GraphOptions configures the graph command.
type GraphOptions struct {
	ConfigPath string
	Domain     string // all domains when empty
}

// RunGraph prints the configured question sequences as a Mermaid flowchart.
func RunGraph(opts GraphOptions, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	stack, err := NewStack(context.Background(), cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer stack.Close()

	flows := cfg.BuildFlows(stack.Categories)
	if opts.Domain != "" {
		d, err := domain.ParseDomain(opts.Domain)
		if err != nil {
			return err
		}
		flows = slices.DeleteFunc(flows, func(f concierge.Flow) bool { return f.Domain != d })
	}

	_, err = io.WriteString(out, graph.GenerateMermaid(flows, nil))
	return err
}

// HistoryOptions configures the history command.
type HistoryOptions struct {
	ConfigPath string
	Limit      int
	JSON       bool
}

// RunHistory prints the most recent archived dispatches.
func RunHistory(opts HistoryOptions, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Archive.Path == "" {
		return errors.New("no archive configured (set archive.path or CONCIERGE_ARCHIVE_PATH)")
	}

	archive, err := sqlite.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer archive.Close()

	records, err := archive.Recent(context.Background(), opts.Limit)
	if err != nil {
		return err
	}
	return PrintHistory(out, records, opts.JSON)
}

// PrintHistory writes records as a table, or as indented JSON.
func PrintHistory(out io.Writer, records []domain.DispatchRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "No dispatches recorded.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tSESSION\tDOMAIN\tKIND\tDURATION\tRESULT\tFIELDS")
	for _, r := range records {
		result := "ok"
		switch {
		case r.Stale:
			result = "stale"
		case r.IsError:
			result = "error: " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.At.Local().Format(time.DateTime), shortID(r.SessionID), r.Domain, r.Kind,
			r.Duration.Round(time.Millisecond), result, r.Fields)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}
