// Package server exposes the crime map over HTTP: the interactive page, its
// JSON model, the boundary layer and table exports.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/crimemap/internal/dataset"
	"github.com/sells-group/crimemap/internal/geo"
	"github.com/sells-group/crimemap/internal/model"
	"github.com/sells-group/crimemap/internal/render"
	"github.com/sells-group/crimemap/internal/state"
)

// Options configures a Server.
type Options struct {
	Map            render.MapOptions
	Page           render.PageOptions
	RateLimitRPS   float64 // 0 disables limiting
	RateLimitBurst int
	CORSOrigins    []string
	PageCacheSize  int
	PageCacheTTL   time.Duration
}

// Server serves one loaded dataset and boundary index. Both are read-only.
type Server struct {
	ds      *dataset.Dataset
	idx     *geo.Index
	opts    Options
	cache   *PageCache
	metrics *Metrics
	limiter *rate.Limiter
	log     *zap.Logger
}

// New creates a Server.
func New(ds *dataset.Dataset, idx *geo.Index, opts Options) *Server {
	s := &Server{
		ds:      ds,
		idx:     idx,
		opts:    opts,
		cache:   NewPageCache(opts.PageCacheSize, opts.PageCacheTTL),
		metrics: NewMetrics(),
		log:     zap.L().With(zap.String("component", "server")),
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = int(opts.RateLimitRPS) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// CacheStats returns rendered page cache statistics.
func (s *Server) CacheStats() CacheStats { return s.cache.Stats() }

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.limiter, s.metrics))

		r.Get("/", s.handlePage)
		r.Get("/api/departments", s.handleDepartments)
		r.Get("/api/view", s.handleView)
		r.Get("/api/boundaries", s.handleBoundaries)
		r.Get("/export/table.csv", s.handleExportCSV)
		r.Get("/export/table.xlsx", s.handleExportXLSX)
	})

	return r
}

// selectionFromRequest applies the request's event to the submitted selection.
// The event names the control that changed; its new value is that control's field.
func selectionFromRequest(r *http.Request) model.Selection {
	q := r.URL.Query()
	sel := model.Selection{
		Department: q.Get("department"),
		Indicator:  q.Get("indicator"),
		Unit:       q.Get("unit"),
	}
	kind := state.ParseEventKind(q.Get("event"))
	if kind == state.EventNone {
		return sel
	}
	return state.Apply(sel, state.Event{Kind: kind, Value: q.Get(string(kind))})
}

func (s *Server) resolve(r *http.Request) (state.View, error) {
	return state.Resolve(s.ds, s.idx, selectionFromRequest(r))
}

func cacheKey(sel model.Selection) string {
	return strings.Join([]string{sel.Department, sel.Indicator, sel.Unit}, "\x00")
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := cacheKey(view.Selection)
	if cached := s.cache.Get(key); cached != nil {
		s.metrics.PageCacheHits.Inc()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Cache", "hit")
		_, _ = w.Write(cached)
		return
	}
	s.metrics.PageCacheMisses.Inc()

	m, err := render.BuildMap(view, s.ds, s.idx, s.opts.Map)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := render.Page(view, m, render.BuildTable(view), s.opts.Page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.Put(key, page)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Cache", "miss")
	_, _ = w.Write(page)
}

func (s *Server) handleDepartments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"departments": s.idx.Labels()})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := render.BuildMap(view, s.ds, s.idx, s.opts.Map)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":  view,
		"map":   m,
		"table": render.BuildTable(view),
	})
}

func (s *Server) handleBoundaries(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.idx.GeoJSON())
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", exportDisposition(view, "csv"))
	if err := render.BuildTable(view).WriteCSV(w); err != nil {
		s.log.Error("csv export failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	view, err := s.resolve(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", exportDisposition(view, "xlsx"))
	if err := render.BuildTable(view).WriteXLSX(w); err != nil {
		s.log.Error("xlsx export failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
}

func exportDisposition(view state.View, ext string) string {
	return fmt.Sprintf(`attachment; filename="crimes-%s.%s"`, view.Code, ext)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"records":     s.ds.Len(),
		"departments": s.idx.Len(),
		"page_cache":  s.cache.Stats(),
	})
}

// writeError maps lookup failures to 404 and everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, geo.ErrLookup) {
		s.metrics.LookupFailures.Inc()
		s.log.Warn("unknown department",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("department", r.URL.Query().Get("department")),
		)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown department"})
		return
	}

	s.log.Error("request failed",
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
