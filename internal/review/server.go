package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"voicetag/internal/config"
	"voicetag/internal/logging"
)

// Server exposes the labeling API over HTTP. Each Server owns one Session.
type Server struct {
	bind    string
	cfg     *config.Config
	session *Session
	logger  *slog.Logger

	listener net.Listener
	server   *http.Server
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:    cfg.Paths.ReviewBind,
		cfg:     cfg,
		session: NewSession(),
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/session/video", srv.handleLoadVideo)
	mux.HandleFunc("/api/session/segments", srv.handleLoadSegments)
	mux.HandleFunc("/api/segments", srv.handleSegments)
	mux.HandleFunc("/api/segments/", srv.handleSegment)
	mux.HandleFunc("/api/speakers", srv.handleSpeakers)
	mux.HandleFunc("/api/export", srv.handleExport)
	mux.HandleFunc("/api/labels/save", srv.handleSaveLabels)
	mux.HandleFunc("/api/labels/load", srv.handleLoadLabels)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Session returns the server's session.
func (s *Server) Session() *Session {
	return s.session
}

// Start begins serving and shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("review listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("review server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("review server listening",
		logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

type loadVideoRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLoadVideo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req loadVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	video, err := s.session.LoadVideo(strings.TrimSpace(req.Path))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, video)
}

type loadSegmentsRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLoadSegments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req loadSegmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	segments, err := s.session.LoadSegmentsFile(strings.TrimSpace(req.Path))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, segments)
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.session.Segments())
	case http.MethodPost:
		var segment Segment
		if err := json.NewDecoder(r.Body).Decode(&segment); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.writeJSON(w, http.StatusOK, s.session.Add(segment))
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type segmentUpdateRequest struct {
	Speaker *string  `json:"speaker,omitempty"`
	Text    *string  `json:"text,omitempty"`
	Start   *float64 `json:"start,omitempty"`
	End     *float64 `json:"end,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/segments/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "segment not found")
		return
	}

	switch r.Method {
	case http.MethodPatch, http.MethodPut:
		var req segmentUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		segment, err := s.applyUpdate(id, req)
		if err != nil {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, segment)
	case http.MethodDelete:
		s.session.Delete(id)
		s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) applyUpdate(id string, req segmentUpdateRequest) (Segment, error) {
	if req.Start != nil && req.End != nil {
		speaker := ""
		if req.Speaker != nil {
			speaker = *req.Speaker
		}
		return s.session.Update(id, speaker, *req.Start, *req.End, req.Notes)
	}
	if req.Speaker != nil {
		return s.session.SetSpeaker(id, strings.TrimSpace(*req.Speaker))
	}
	if req.Text != nil {
		return s.session.SetText(id, strings.TrimSpace(*req.Text))
	}
	return Segment{}, fmt.Errorf("no updatable fields in request")
}

func (s *Server) handleSpeakers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ids := make([]string, 0, len(s.cfg.Speakers))
	for _, speaker := range s.cfg.Speakers {
		ids = append(ids, speaker.ID)
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	labels := s.session.Export()
	if len(labels) == 0 {
		s.writeError(w, http.StatusBadRequest, "no segments to export")
		return
	}
	s.writeJSON(w, http.StatusOK, labels)
}

type saveLabelsRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handleSaveLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req saveLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "labels_" + time.Now().UTC().Format("20060102_150405") + ".json"
	}
	if filepath.Base(filename) != filename {
		s.writeError(w, http.StatusBadRequest, "filename must not contain path separators")
		return
	}

	path := filepath.Join(s.cfg.Paths.WorkDir, "labels", filename)
	if err := s.session.SaveLabels(path); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"filename": filename, "path": path})
}

type loadLabelsRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLoadLabels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req loadLabelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	segments, err := s.session.LoadLabels(strings.TrimSpace(req.Path))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, segments)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
