package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/techmentor/gateway/internal/gate"
	"github.com/techmentor/gateway/internal/llm"
	"github.com/techmentor/gateway/internal/prompt"
	"github.com/techmentor/gateway/internal/review"
	"github.com/techmentor/gateway/internal/session"
)

// chatRequest is the body shared by /chat and /chat/stream.
type chatRequest struct {
	SessionID   string `json:"sessionId"`
	UserText    string `json:"userText"`
	Mode        string `json:"mode,omitempty"`
	PageContext any    `json:"pageContext,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	if err := s.gate.Acquire(r.Context()); err != nil {
		writeGatewayError(w, err)
		return
	}
	defer s.gate.Release()

	ctx := r.Context()
	history, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		log.Printf("server: loading session %s: %v", req.SessionID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	messages := prompt.Compose(prompt.Mode(req.Mode), req.PageContext, history, req.UserText)
	reply, err := s.completer.Complete(ctx, messages)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	s.persistTurn(ctx, req.SessionID, history, req.UserText, reply)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChatRequest(w, r)
	if !ok {
		return
	}

	if err := s.gate.Acquire(r.Context()); err != nil {
		writeGatewayError(w, err)
		return
	}
	defer s.gate.Release()

	ctx := r.Context()
	history, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		log.Printf("server: loading session %s: %v", req.SessionID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	messages := prompt.Compose(prompt.Mode(req.Mode), req.PageContext, history, req.UserText)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, _ := w.(http.Flusher)

	wroteAny := false
	full, err := s.completer.Stream(ctx, messages, func(delta string) {
		wroteAny = true
		if _, werr := io.WriteString(w, delta); werr != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil {
		// Once bytes have gone out there is no way to signal a structured
		// error; the stream just ends.
		if !wroteAny {
			writeGatewayError(w, err)
			return
		}
		log.Printf("server: stream for session %s ended early: %v", req.SessionID, err)
		return
	}

	s.persistTurn(ctx, req.SessionID, history, req.UserText, full)
}

func (s *Server) handleUploadReview(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.MaxUploadMB << 20
	// Small allowance for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body or file too large")
		return
	}

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	uniReq := r.FormValue("uniReq")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	if err := s.gate.Acquire(r.Context()); err != nil {
		writeGatewayError(w, err)
		return
	}
	defer s.gate.Release()

	mimeType := header.Header.Get("Content-Type")
	result, err := s.reviewer.Review(r.Context(), sessionID, uniReq, mimeType, data)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reply": result.Reply,
		"stats": result.Stats,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	state := s.monitor.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        state.OK,
		"fails":     state.ConsecutiveFails,
		"active":    s.gate.Active(),
		"queue":     s.gate.Waiting(),
		"lastOk":    formatTime(state.LastOK),
		"lastError": orNil(state.LastError),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	state := s.monitor.Snapshot()
	ready := state.OK && !s.gate.QueueFull()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"ready":  ready,
		"ok":     state.OK,
		"active": s.gate.Active(),
		"queue":  s.gate.Waiting(),
	})
}

// decodeChatRequest parses and validates the shared chat body, writing the
// 400 itself when validation fails.
func (s *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return chatRequest{}, false
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return chatRequest{}, false
	}
	if req.UserText == "" {
		writeError(w, http.StatusBadRequest, "userText is required")
		return chatRequest{}, false
	}
	return req, true
}

// persistTurn appends the completed exchange to the session history.
// Persistence failures do not fail an already-delivered reply.
func (s *Server) persistTurn(ctx context.Context, sessionID string, history []session.Turn, userText, reply string) {
	history = append(history,
		session.Turn{Role: session.RoleUser, Content: userText},
		session.Turn{Role: session.RoleAssistant, Content: reply},
	)
	if err := s.sessions.Set(ctx, sessionID, history); err != nil {
		log.Printf("server: saving session %s: %v", sessionID, err)
	}
}

// writeGatewayError maps the gateway error taxonomy to HTTP statuses:
// 503 busy, 504 timeout, 429 passthrough, 400 for validation/extraction
// failures, 500 for everything else.
func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gate.ErrBusy):
		writeError(w, http.StatusServiceUnavailable, "server busy, try again later")
	case errors.Is(err, llm.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "upstream request timed out")
	case llm.IsRateLimited(err):
		writeError(w, http.StatusTooManyRequests, "rate limited by upstream, try again later")
	case errors.Is(err, review.ErrNoText):
		writeError(w, http.StatusBadRequest, "could not extract text from document")
	case errors.Is(err, review.ErrTooLarge):
		writeError(w, http.StatusBadRequest, "file too large (10MB limit)")
	case errors.Is(err, review.ErrBadType):
		writeError(w, http.StatusBadRequest, "only PDF and DOCX files are supported")
	default:
		log.Printf("server: request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
