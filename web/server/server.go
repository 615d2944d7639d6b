// Package server exposes scenes over HTTP: listing, tree statistics,
// preview renders and per-pixel ray inspection. Built trees are cached per
// scene and layout and shared by concurrent requests.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/df07/go-bvh/pkg/bvh"
	"github.com/df07/go-bvh/pkg/config"
	"github.com/df07/go-bvh/pkg/log"
	"github.com/df07/go-bvh/pkg/scene"
)

var logger = log.New("server")

// Server handles web requests for the preview renderer
type Server struct {
	port   int
	config config.Config

	loadScene func(ref string) (*scene.Scene, error)

	mu    sync.Mutex // guards cache only; loads and builds run outside it
	cache map[string]*cachedTree
}

// cachedTree is a scene with a tree built over it. Trees are never refit
// while cached, so requests may query them concurrently. The fields are set
// once by the first caller and read after once.Do returns.
type cachedTree struct {
	once      sync.Once
	err       error
	scene     *scene.Scene
	tree      *bvh.Tree
	buildTime time.Duration
}

// NewServer creates a new web server
func NewServer(port int, cfg config.Config) *Server {
	return &Server{
		port:      port,
		config:    cfg,
		loadScene: scene.Load,
		cache:     make(map[string]*cachedTree),
	}
}

// StatsResponse describes a built tree
type StatsResponse struct {
	Scene       string  `json:"scene"`
	Layout      string  `json:"layout"`
	Primitives  int     `json:"primitives"`
	Nodes       int     `json:"nodes"`
	Leaves      int     `json:"leaves"`
	MaxDepth    int     `json:"maxDepth"`
	AvgDepth    float64 `json:"avgDepth"`
	MaxLeafSize int     `json:"maxLeafSize"`
	SAHCost     float64 `json:"sahCost"`
	BuildTimeMs float64 `json:"buildTimeMs"`
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Noticef("starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in scenes and the files in the scenes directory
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	response, err := scene.ListAllScenes(s.config.ScenesDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, response)
}

// handleStats builds (or reuses) a tree and reports its structure
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	entry, layout, ok := s.requestTree(w, r)
	if !ok {
		return
	}

	stats, err := entry.tree.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Scene:       entry.scene.Name,
		Layout:      layout.String(),
		Primitives:  entry.scene.Store.Len(),
		Nodes:       stats.Nodes,
		Leaves:      stats.Leaves,
		MaxDepth:    stats.MaxDepth,
		AvgDepth:    stats.AvgDepth,
		MaxLeafSize: stats.MaxLeafSize,
		SAHCost:     stats.SAHCost,
		BuildTimeMs: float64(entry.buildTime.Microseconds()) / 1000,
	})
}

// requestTree resolves the scene and layout query parameters, writing an
// error response and returning false when they are invalid
func (s *Server) requestTree(w http.ResponseWriter, r *http.Request) (*cachedTree, bvh.Layout, bool) {
	query := r.URL.Query()

	layoutName := query.Get("layout")
	if layoutName == "" {
		layoutName = s.config.Build.Layout
	}
	layout, err := bvh.ParseLayout(layoutName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}

	sceneName := query.Get("scene")
	if sceneName == "" {
		sceneName = "two-triangles"
	}
	entry, err := s.sceneTree(sceneName, layout)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	return entry, layout, true
}

// sceneTree returns the cached tree for a scene, building it on first use.
// Only built-in scene IDs and scenes listed from the scenes directory are
// accepted, never raw paths. Concurrent requests for the same key wait for
// one build; other keys are served meanwhile. Failed builds are not cached.
func (s *Server) sceneTree(sceneID string, layout bvh.Layout) (*cachedTree, error) {
	ref, err := s.resolveScene(sceneID)
	if err != nil {
		return nil, err
	}
	key := sceneID + "|" + layout.String()

	s.mu.Lock()
	entry, ok := s.cache[key]
	if !ok {
		entry = &cachedTree{}
		s.cache[key] = entry
	}
	s.mu.Unlock()

	entry.once.Do(func() {
		entry.err = s.buildEntry(entry, ref, layout)
		if entry.err != nil {
			s.mu.Lock()
			if s.cache[key] == entry {
				delete(s.cache, key)
			}
			s.mu.Unlock()
			return
		}
		logger.Infof("built %s tree for %s in %v", layout, sceneID, entry.buildTime)
	})
	if entry.err != nil {
		return nil, entry.err
	}
	return entry, nil
}

// buildEntry loads the scene behind ref and builds its tree into entry
func (s *Server) buildEntry(entry *cachedTree, ref string, layout bvh.Layout) error {
	sc, err := s.loadScene(ref)
	if err != nil {
		return err
	}

	buildConfig, err := s.config.BuildConfig()
	if err != nil {
		return err
	}
	startTime := time.Now()
	tree, err := sc.BuildTree(layout, buildConfig)
	if err != nil {
		return err
	}

	entry.scene = sc
	entry.tree = tree
	entry.buildTime = time.Since(startTime)
	return nil
}

// resolveScene maps a scene ID to something scene.Load accepts
func (s *Server) resolveScene(sceneID string) (string, error) {
	for _, info := range scene.BuiltinScenes() {
		if info.ID == sceneID {
			return sceneID, nil
		}
	}

	fileScenes, err := scene.ListFileScenes(s.config.ScenesDir)
	if err != nil {
		return "", err
	}
	for _, info := range fileScenes {
		if info.ID == sceneID {
			return info.FilePath, nil
		}
	}
	return "", fmt.Errorf("unknown scene: %s", sceneID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
