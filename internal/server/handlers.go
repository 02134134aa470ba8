package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/matzehuels/canopy/pkg/controller"
	cerrors "github.com/matzehuels/canopy/pkg/errors"
	"github.com/matzehuels/canopy/pkg/pipeline"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// maxBodyBytes bounds request bodies of the interaction endpoints.
const maxBodyBytes = 1 << 16

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type zoomRequest struct {
	Factor float64 `json:"factor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// =============================================================================
// Read Endpoints
// =============================================================================

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	f, err := s.current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeFrame(w, f)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.list()})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, cerrors.Wrap(cerrors.ErrCodeInvalidFormat, err, "export"))
		return
	}

	f, err := s.current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	opts := s.opts.Export
	opts.Formats = []string{format}
	artifacts, hit, err := s.runner.RenderWithCacheInfo(r.Context(), f, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	status := "miss"
	if hit {
		status = "hit"
	}
	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("X-Cache", status)
	w.WriteHeader(http.StatusOK)
	w.Write(artifacts[format])
}

// current returns the loop's full-state frame, waiting for the first one
// if the loop has not produced it yet.
func (s *Server) current(ctx context.Context) (render.Frame, error) {
	if f, ok := s.loop.Current(); ok {
		return f, nil
	}
	sub := s.loop.Subscribe("api")
	defer sub.Close()
	select {
	case _, ok := <-sub.C():
		if !ok {
			return render.Frame{}, controller.ErrLoopStopped
		}
		f, _ := s.loop.Current()
		return f, nil
	case <-ctx.Done():
		return render.Frame{}, ctx.Err()
	}
}

// =============================================================================
// Interaction Endpoints
// =============================================================================

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := tree.ID(chi.URLParam(r, "id"))
	s.apply(w, r, controller.ClickEvent{ID: id})
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, r, controller.ResizeEvent{Width: req.Width, Height: req.Height})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Factor <= 0 {
		writeError(w, cerrors.New(cerrors.ErrCodeInvalidInput, "zoom factor must be positive, got %v", req.Factor))
		return
	}
	s.apply(w, r, controller.ZoomEvent{Factor: req.Factor, Focus: view.Point{X: req.X, Y: req.Y}})
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.apply(w, r, controller.PanEvent{DX: req.DX, DY: req.DY})
}

func (s *Server) handleSimple(ev controller.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.apply(w, r, ev)
	}
}

// apply sends ev through the loop and answers with the resulting frame.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, ev controller.Event) {
	f, err := s.loop.Send(r.Context(), ev)
	if err != nil {
		s.logger.Debug("event failed", "event", fmt.Sprintf("%T", ev), "error", err)
		writeError(w, err)
		return
	}
	writeFrame(w, f)
}

// =============================================================================
// Responses
// =============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "decode request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFrame(w http.ResponseWriter, f render.Frame) {
	writeJSON(w, http.StatusOK, render.Wrap(f))
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), render.Envelope{
		Type:  render.MessageError,
		Error: cerrors.UserMessage(err),
	})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrLoopStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeUnknownNode, cerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case cerrors.ErrCodeHiddenNode:
		return http.StatusConflict
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidDataset,
		cerrors.ErrCodeInvalidFormat, cerrors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case cerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func contentType(format string) string {
	switch format {
	case pipeline.FormatSVG, pipeline.FormatGraphvizSVG:
		return "image/svg+xml"
	case pipeline.FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	case pipeline.FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}
