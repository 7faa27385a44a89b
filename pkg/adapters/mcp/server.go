package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/internal/logging"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSettleTimeout bounds how long a tool call waits for the conversation to go idle.
const DefaultSettleTimeout = 45 * time.Second

// SessionView is the tool result shared by every session tool.
type SessionView struct {
	SessionID      string           `json:"session_id" jsonschema_description:"Identifier to pass to the other tools"`
	Domain         domain.Domain    `json:"domain" jsonschema_description:"Active service: vendor or event"`
	FlowState      domain.FlowState `json:"flow_state" jsonschema_description:"Current question, or PROCESSING once all answers are in"`
	Fields         any              `json:"fields,omitempty" jsonschema_description:"Answers collected so far"`
	Options        []string         `json:"options" jsonschema_description:"Labels accepted by select_option in the current state"`
	OptionsPending bool             `json:"options_pending" jsonschema_description:"Options are still loading"`
	Loading        bool             `json:"loading" jsonschema_description:"A marketplace query is in flight"`
	Messages       []domain.Message `json:"messages" jsonschema_description:"The full transcript"`
	// Ignored is set when the action was rejected without effect.
	Ignored string `json:"ignored,omitempty" jsonschema_description:"Reason the action was ignored, if it was"`
}

// Server exposes the session manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
	settle    time.Duration
	poll      time.Duration
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSettleTimeout sets how long action tools wait for the reply (0 returns at once).
func WithSettleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.settle = d
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("concierge-mcp", strings.TrimSpace(concierge.Version)),
		settle:    DefaultSettleTimeout,
		poll:      20 * time.Millisecond,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type openArgs struct {
	Domain string `json:"domain"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type optionArgs struct {
	SessionID string `json:"session_id"`
	Value     string `json:"value"`
}

type textArgs struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type domainArgs struct {
	SessionID string `json:"session_id"`
	Domain    string `json:"domain"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Start a marketplace conversation. Domain 'vendor' finds a vendor, 'event' plans an event."),
		mcp.WithString("domain", mcp.Required(), mcp.Enum("vendor", "event"), mcp.Description("Service to start with")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleOpenSession))

	s.mcpServer.AddTool(mcp.NewTool("select_option",
		mcp.WithDescription("Answer the current question with one of the offered options. Returns once the next question or the marketplace answer is in."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_session")),
		mcp.WithString("value", mcp.Required(), mcp.Description("One of the labels in 'options'")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSelectOption))

	s.mcpServer.AddTool(mcp.NewTool("submit_text",
		mcp.WithDescription("Ask a free-form follow-up question. Only accepted once every guided question is answered."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_session")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The question")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSubmitText))

	s.mcpServer.AddTool(mcp.NewTool("switch_domain",
		mcp.WithDescription("Restart the conversation on another service. The transcript is cleared."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_session")),
		mcp.WithString("domain", mcp.Required(), mcp.Enum("vendor", "event"), mcp.Description("Service to switch to")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleSwitchDomain))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Read the current state and transcript of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by open_session")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))
}

func (s *Server) handleOpenSession(ctx context.Context, _ mcp.CallToolRequest, args openArgs) (SessionView, error) {
	d, err := domain.ParseDomain(args.Domain)
	if err != nil {
		return SessionView{}, err
	}
	conv, err := s.sessions.Open(ctx, d)
	if err != nil {
		return SessionView{}, fmt.Errorf("open failed: %w", err)
	}
	return s.await(ctx, conv, nil)
}

func (s *Server) handleSelectOption(ctx context.Context, _ mcp.CallToolRequest, args optionArgs) (SessionView, error) {
	conv, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return SessionView{}, err
	}
	return s.await(ctx, conv, conv.SelectOption(ctx, args.Value))
}

func (s *Server) handleSubmitText(ctx context.Context, _ mcp.CallToolRequest, args textArgs) (SessionView, error) {
	conv, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return SessionView{}, err
	}
	return s.await(ctx, conv, conv.SubmitText(ctx, args.Text))
}

func (s *Server) handleSwitchDomain(ctx context.Context, _ mcp.CallToolRequest, args domainArgs) (SessionView, error) {
	conv, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return SessionView{}, err
	}
	d, err := domain.ParseDomain(args.Domain)
	if err != nil {
		return SessionView{}, err
	}
	return s.await(ctx, conv, conv.SwitchDomain(ctx, d))
}

func (s *Server) handleGetSession(_ context.Context, _ mcp.CallToolRequest, args sessionArgs) (SessionView, error) {
	conv, err := s.sessions.Get(args.SessionID)
	if err != nil {
		return SessionView{}, err
	}
	return viewOf(conv.Snapshot()), nil
}

// await turns the outcome of an action into a view. Validation errors are reported in the
// view instead of failing the call. After a successful action it waits for the conversation
// to go idle so the agent sees the reply.
func (s *Server) await(ctx context.Context, conv *concierge.Conversation, actionErr error) (SessionView, error) {
	if actionErr != nil {
		if !domain.IsValidation(actionErr) {
			return SessionView{}, actionErr
		}
		s.logger.Debug("MCP action ignored", "session_id", conv.ID(), "error", actionErr)
		view := viewOf(conv.Snapshot())
		view.Ignored = actionErr.Error()
		return view, nil
	}

	if s.settle <= 0 {
		return viewOf(conv.Snapshot()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.settle)
	defer cancel()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		snap := conv.Snapshot()
		if !snap.Loading && !snap.OptionsLocked && !snap.OptionsPending {
			return viewOf(snap), nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// Still busy: return what there is, the agent can poll get_session.
				return viewOf(conv.Snapshot()), nil
			}
			return SessionView{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func viewOf(snap domain.Snapshot) SessionView {
	options := snap.Options
	if options == nil {
		options = []string{}
	}
	return SessionView{
		SessionID:      snap.ID,
		Domain:         snap.Domain,
		FlowState:      snap.FlowState,
		Fields:         snap.Fields,
		Options:        options,
		OptionsPending: snap.OptionsPending,
		Loading:        snap.Loading,
		Messages:       snap.Messages,
	}
}

func (s *Server) registerResources() {
	// EXPOSE: concierge://sessions
	s.mcpServer.AddResource(mcp.NewResource("concierge://sessions", "Open Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.sessions.List())
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "concierge://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
