package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/df07/go-bvh/pkg/renderer"
)

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Width       int    // Image width
	Height      int    // Image height
	Supersample int    // Rays per pixel along each axis
	Mode        string // depth, normal or occlusion
	Format      string // png or webp
}

// parseRenderRequest parses image parameters, falling back to the server config
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	defaults := s.config.Render
	req := &RenderRequest{
		Mode:   query.Get("mode"),
		Format: query.Get("format"),
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", defaults.Width, 16, 2000); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(query, "height", defaults.Height, 16, 2000); err != nil {
		return nil, err
	}
	if req.Supersample, err = parseIntParam(query, "supersample", defaults.Supersample, 1, 4); err != nil {
		return nil, err
	}

	if req.Mode == "" {
		req.Mode = defaults.Mode
	}
	switch req.Format {
	case "":
		req.Format = renderer.FormatPNG
	case renderer.FormatPNG, renderer.FormatWebP:
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}

	return req, nil
}

// handleRender renders the requested scene and returns the encoded image
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	settings := s.config
	settings.Render.Width = req.Width
	settings.Render.Height = req.Height
	settings.Render.Supersample = req.Supersample
	settings.Render.Mode = req.Mode
	renderConfig, err := settings.RenderConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	entry, _, ok := s.requestTree(w, r)
	if !ok {
		return
	}

	img, stats, err := renderer.Render(r.Context(), entry.tree, entry.scene.Store, entry.scene.CameraConfig, renderConfig)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := renderer.EncodeImage(&buf, img, req.Format); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/"+req.Format)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Render-Time-Ms", strconv.FormatInt(stats.Elapsed.Milliseconds(), 10))
	w.Header().Set("X-Rays", strconv.Itoa(stats.PrimaryRays+stats.ShadowRays))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warningf("failed to write image: %v", err)
	}
}
