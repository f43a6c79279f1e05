package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/search"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/search/cache"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/internal/searchquery"
	apperrors "github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/pgsearchable/pkg/tracing"
)

type Searcher interface {
	Prepare(req search.Request) (search.Target, *search.Statement, error)
	Execute(ctx context.Context, target search.Target, query string, stmt *search.Statement) (*search.Result, error)
	Targets() search.Targets
}

type Tracker interface {
	Track(event analytics.SearchEvent) bool
}

type Handler struct {
	searcher  Searcher
	lenient   *searchquery.Parser
	strict    *searchquery.Parser
	strictDef bool
	cache     *cache.QueryCache
	collector Tracker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New wires the HTTP handlers. parser is the configured parser; the parse
// endpoint derives lenient and strict variants of it. queryCache and
// collector may be nil.
func New(s Searcher, parser *searchquery.Parser, queryCache *cache.QueryCache, collector Tracker, m *metrics.Metrics) *Handler {
	opts := parser.Options()
	strictDef := opts.Strict
	opts.Strict = false
	lenient := searchquery.NewWithOptions(opts)
	opts.Strict = true
	strict := searchquery.NewWithOptions(opts)
	return &Handler{
		searcher:  s,
		lenient:   lenient,
		strict:    strict,
		strictDef: strictDef,
		cache:     queryCache,
		collector: collector,
		metrics:   m,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/parse", h.Parse)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/targets", h.Targets)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type parseResponse struct {
	Query     string   `json:"query"`
	Sanitized string   `json:"sanitized"`
	Compiled  string   `json:"compiled"`
	Terms     []string `json:"terms"`
	Strict    bool     `json:"strict"`
}

func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	strict, err := boolParam(r, "strict", h.strictDef)
	if err != nil {
		h.writeError(w, err)
		return
	}
	parser := h.lenient
	if strict {
		parser = h.strict
	}

	compiled, err := parser.Parse(query)
	h.countParse(compiled, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	terms := parser.Terms(query)
	if terms == nil {
		terms = []string{}
	}
	h.writeJSON(w, http.StatusOK, parseResponse{
		Query:     query,
		Sanitized: parser.Sanitize(query),
		Compiled:  compiled,
		Terms:     terms,
		Strict:    strict,
	})
}

type searchResponse struct {
	*search.Result
	CacheHit  bool               `json:"cache_hit"`
	LatencyMs int64              `json:"latency_ms"`
	TimingsMs map[string]float64 `json:"timings_ms"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "search")
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()

	req, err := searchRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	_, prepareSpan := tracing.Start(ctx, "prepare")
	target, stmt, err := h.searcher.Prepare(req)
	prepareSpan.End()
	span.SetAttr("target", req.Target)
	if err != nil {
		if errors.Is(err, apperrors.ErrMalformedQuery) {
			h.countParse("", err)
			h.track(ctx, analytics.SearchEvent{
				Type:   analytics.EventMalformed,
				Target: req.Target,
				Query:  req.Query,
				Error:  err.Error(),
			}, start)
		}
		h.writeError(w, err)
		return
	}
	h.countParse(stmt.Compiled, nil)

	var result *search.Result
	cacheHit := false
	execute := func(ctx context.Context) (*search.Result, error) {
		ctx, executeSpan := tracing.Start(ctx, "execute")
		defer executeSpan.End()
		return h.searcher.Execute(ctx, target, req.Query, stmt)
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Key(target.Name, stmt, req.Sort), execute)
	} else {
		result, err = execute(ctx)
	}
	latency := time.Since(start)

	if err != nil {
		log.Error("search execution failed", "target", target.Name, "compiled", stmt.Compiled, "error", err)
		h.observe(target.Name, "error", cacheHit, latency, -1)
		h.track(ctx, analytics.SearchEvent{
			Type:     analytics.EventError,
			Target:   target.Name,
			Query:    req.Query,
			Compiled: stmt.Compiled,
			Error:    err.Error(),
		}, start)
		h.writeError(w, err)
		return
	}
	// Results are shared between callers whose input compiled identically.
	own := *result
	own.Query = req.Query
	result = &own

	resultType := "miss"
	switch {
	case cacheHit:
		resultType = "hit"
	case result.Count == 0:
		resultType = "zero_result"
	}
	h.observe(target.Name, resultType, cacheHit, latency, result.Count)

	log.Info("search completed",
		"target", target.Name,
		"compiled", stmt.Compiled,
		"returned", result.Count,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, analytics.SearchEvent{
		Target:   target.Name,
		Query:    req.Query,
		Compiled: stmt.Compiled,
		Terms:    h.lenient.Terms(req.Query),
		Returned: result.Count,
		CacheHit: cacheHit,
	}, start)

	h.writeJSON(w, http.StatusOK, searchResponse{
		Result:    result,
		CacheHit:  cacheHit,
		LatencyMs: latency.Milliseconds(),
		TimingsMs: span.Timings(),
	})
}

func (h *Handler) Targets(w http.ResponseWriter, r *http.Request) {
	targets := h.searcher.Targets()
	out := make([]search.Target, 0, len(targets))
	for _, name := range targets.Names() {
		out = append(out, targets[name])
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"targets": out})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	target := r.URL.Query().Get("target")
	if target != "" {
		if _, ok := h.searcher.Targets()[target]; !ok {
			h.writeError(w, fmt.Errorf("%w: %q", apperrors.ErrUnknownTarget, target))
			return
		}
	}

	deleted, err := h.cache.Invalidate(r.Context(), target)
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func searchRequest(r *http.Request) (search.Request, error) {
	q := r.URL.Query()
	req := search.Request{
		Target: q.Get("target"),
		Query:  q.Get("q"),
	}
	var err error
	if req.Sort, err = boolParam(r, "sort", false); err != nil {
		return req, err
	}
	if req.Limit, err = intParam(r, "limit"); err != nil {
		return req, err
	}
	if req.Offset, err = intParam(r, "offset"); err != nil {
		return req, err
	}
	return req, nil
}

func boolParam(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", apperrors.ErrInvalidInput, name)
	}
	return v, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", apperrors.ErrInvalidInput, name)
	}
	return v, nil
}

func (h *Handler) countParse(compiled string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := metrics.ParseOK
	switch {
	case err != nil:
		outcome = metrics.ParseMalformed
	case compiled == "":
		outcome = metrics.ParseEmpty
	}
	h.metrics.ParseTotal.WithLabelValues(outcome).Inc()
}

func (h *Handler) observe(target, resultType string, cacheHit bool, latency time.Duration, count int) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(target, resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(target, cacheStatus).Observe(latency.Seconds())
	if count >= 0 {
		h.metrics.SearchResultsCount.WithLabelValues(target).Observe(float64(count))
	}
	if h.cache != nil {
		if cacheHit {
			h.metrics.CacheHitsTotal.Inc()
		} else {
			h.metrics.CacheMissesTotal.Inc()
		}
	}
}

func (h *Handler) track(ctx context.Context, event analytics.SearchEvent, start time.Time) {
	if h.collector == nil {
		return
	}
	event.LatencyMs = time.Since(start).Milliseconds()
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.collector.Track(event)
}

type errorResponse struct {
	Error    string `json:"error"`
	Position *int   `json:"position,omitempty"`
	Near     string `json:"near,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	resp := errorResponse{Error: err.Error()}
	var parseErr *searchquery.ParseError
	if errors.As(err, &parseErr) {
		resp.Position = &parseErr.Pos
		resp.Near = parseErr.Near
	}
	if status >= http.StatusInternalServerError && !errors.Is(err, apperrors.ErrUnavailable) && !errors.Is(err, apperrors.ErrTimeout) {
		resp.Error = "search failed"
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
