package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/HendryAvila/repobridge/internal/logging"
	"github.com/HendryAvila/repobridge/internal/session"
)

// handleSSE opens a session and streams its frames until the client goes
// away, the session is removed, or the server stops.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	sess := s.table.Create()
	id := sess.SessionID()
	defer s.table.Remove(id)

	if err := s.mcp.RegisterSession(r.Context(), sess); err != nil {
		logging.Error().Err(err).Str("session", id).Msg("register session")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "could not register session")
		return
	}
	logging.Info().Str("session", id).Str("remote", r.RemoteAddr).Msg("session opened")

	w.WriteHeader(http.StatusOK)

	endpoint := s.config.MessagePath + "?sessionId=" + url.QueryEscape(id)
	if err := sse.writeEvent("endpoint", []byte(endpoint)); err != nil {
		return
	}

	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.Done():
			return
		case <-s.stopping:
			return
		case f := <-sess.Frames():
			if err := sse.writeEvent(f.Event, f.Data); err != nil {
				logging.Debug().Err(err).Str("session", id).Msg("stream write failed")
				return
			}
			sess.Touch()
		case n := <-sess.Notifications():
			data, err := json.Marshal(n)
			if err != nil {
				logging.Warn().Err(err).Str("session", id).Msg("marshal notification")
				continue
			}
			if err := sse.writeEvent("message", data); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}

// handleMessage accepts one JSON-RPC message for an open session. The
// message is handled asynchronously; its response, if any, is pushed on
// the session's stream.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	if id == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "missing sessionId")
		return
	}
	sess, ok := s.table.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeSessionNotFound, "session not found")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "could not read body")
		return
	}
	if !json.Valid(raw) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON")
		return
	}

	if !s.begin() {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "server is shutting down")
		return
	}
	sess.Touch()
	go s.dispatch(sess, raw)

	w.WriteHeader(http.StatusAccepted)
	io.WriteString(w, "Accepted")
}

// dispatch runs one message through the MCP server and queues the reply.
// A session closed in the meantime silently drops it.
func (s *Server) dispatch(sess *session.Session, raw json.RawMessage) {
	defer s.inflight.Done()

	ctx := s.mcp.WithContext(s.baseCtx, sess)
	resp := s.mcp.HandleMessage(ctx, raw)
	if resp == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Str("session", sess.SessionID()).Msg("marshal response")
		return
	}
	if !sess.Send(s.baseCtx, session.Frame{Event: "message", Data: data}) {
		logging.Debug().Str("session", sess.SessionID()).Msg("response dropped, session closed")
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Sessions      int    `json:"sessions"`
	Version       string `json:"version"`
	Commit        string `json:"commit,omitempty"`
	BuildTime     string `json:"buildTime,omitempty"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Sessions:      s.table.Len(),
		Version:       s.config.Version,
		Commit:        s.config.Commit,
		BuildTime:     s.config.BuildTime,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	names := s.tools.Names()
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(names),
		"tools": names,
	})
}
