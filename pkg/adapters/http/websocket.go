package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/aretw0/concierge"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// Action is a command sent by a stream client.
type Action struct {
	// Type is one of select_option, submit_text, switch_domain, retry_options or ping.
	Type   string `json:"type"`
	Value  string `json:"value,omitempty"`
	Text   string `json:"text,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Stream handles GET /sessions/{id}/stream (websocket).
// The first frame is a full snapshot; every later change arrives as a diff frame.
// Clients drop appended messages whose id they already hold.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := conv.ID()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.allowedOrigins),
	})
	if err != nil {
		s.logger.Error("failed to accept websocket", "session_id", id, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			s.logger.Debug("failed to close websocket", "session_id", id, "error", closeErr)
		}
	}()

	s.logger.Info("stream client connected", "session_id", id)

	ch, unsubscribe := s.Streams.Subscribe(id)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := writeFrame(ctx, ws, Frame{Type: "snapshot", Data: conv.Snapshot()}); err != nil {
		s.logger.Debug("failed to send snapshot", "session_id", id, "error", err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: client -> conversation.
	go func() {
		defer wg.Done()
		defer cancel()
		s.inputLoop(ctx, ws, conv)
	}()

	// Output loop: conversation -> client.
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					// Session closed.
					return
				}
				if err := ws.Write(ctx, websocket.MessageText, msg); err != nil {
					s.logger.Debug("stream write failed", "session_id", id, "error", err)
					return
				}
			}
		}
	}()

	wg.Wait()
	s.logger.Info("stream client disconnected", "session_id", id)
}

// originHosts reduces full origins such as "https://market.example" to the host patterns
// websocket.Accept compares against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Scheme != "" && u.Host != "" {
			o = u.Host
		}
		hosts = append(hosts, o)
	}
	return hosts
}

func (s *Server) inputLoop(ctx context.Context, ws *websocket.Conn, conv *concierge.Conversation) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.logger.Debug("websocket closed by client", "session_id", conv.ID())
			} else if ctx.Err() == nil {
				s.logger.Warn("websocket read error", "session_id", conv.ID(), "error", err)
			}
			return
		}

		// Every inbound frame counts as activity for the idle reaper.
		if err := s.Sessions.Touch(conv.ID()); err != nil {
			_ = writeFrame(ctx, ws, Frame{Type: "error", Error: err.Error()})
			return
		}

		var action Action
		if err := json.Unmarshal(message, &action); err != nil {
			_ = writeFrame(ctx, ws, Frame{Type: "error", Error: "invalid action"})
			continue
		}

		if action.Type == "ping" {
			_ = writeFrame(ctx, ws, Frame{Type: "pong"})
			continue
		}

		if err := s.apply(ctx, conv, action); err != nil {
			frame := Frame{Type: "error", Error: err.Error(), Ignored: domain.IsValidation(err)}
			if err := writeFrame(ctx, ws, frame); err != nil {
				return
			}
		}
	}
}

// apply runs action against conv. The resulting changes reach the client as diff frames.
func (s *Server) apply(ctx context.Context, conv *concierge.Conversation, action Action) error {
	switch action.Type {
	case "select_option":
		return conv.SelectOption(ctx, action.Value)
	case "submit_text":
		return conv.SubmitText(ctx, action.Text)
	case "retry_options":
		return conv.RetryOptions(ctx)
	case "switch_domain":
		d, err := domain.ParseDomain(action.Domain)
		if err != nil {
			return err
		}
		return conv.SwitchDomain(ctx, d)
	default:
		return fmt.Errorf("unknown action %q", action.Type)
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

// Events handles GET /sessions/{id}/events, the server-sent events variant of Stream for
// clients that only read.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		s.logger.Error("events: streaming not supported")
		return
	}
	conv, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	ch, unsubscribe := s.Streams.Subscribe(id)
	defer unsubscribe()

	snapshot, err := json.Marshal(Frame{Type: "snapshot", Data: conv.Snapshot()})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "data: %s\n\n", snapshot)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("events client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
