package httpapi

import (
	"context"
	"net/http"

	"airmetrics/internal/hub"
	"airmetrics/internal/pipeline"
	"airmetrics/internal/since"
	"airmetrics/pkg/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Sensors() []types.SensorInfo
	Latest(name string) (types.Reading, error)
	Snapshot() []types.Reading
	Health(ctx context.Context) types.HealthResponse
	History(ctx context.Context, since int64) ([]types.Reading, error)
	Subscribe() *hub.Subscriber
	Unsubscribe(s *hub.Subscriber)
	Ready() bool
}

// LatestSource is a secondary lookup for the latest reading of a sensor.
type LatestSource interface {
	Get(ctx context.Context, sensor string) (types.Reading, error)
}

type server struct {
	svc  Service
	opts Options
}

// NewMux builds the router. It holds no package-level state; everything it
// needs comes from svc and opts.
func NewMux(svc Service, opts Options) http.Handler {
	s := &server{svc: svc, opts: opts.withDefaults()}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(AccessLog(s.opts.Logger))
	// Compression for JSON endpoints; event streams are not in the type list
	r.Use(middleware.Compress(5, "application/json", "text/plain"))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if c := s.opts.CORS; c.Enabled {
		origins := c.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		methods := c.AllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodOptions}
		}
		headers := c.AllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Accept", "Content-Type", "Last-Event-ID"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sensors", s.handleSensors)
		r.Get("/sensors/{name}/latest", s.handleLatest)
		r.Get("/history", s.handleHistory)
		r.Get("/stream", s.handleStream)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// handleHealth godoc
// @Summary      Service health
// @Description  Store reachability and per-sensor connection, read and sampler state.
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /api/health [get]
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Health(r.Context()))
}

// handleSensors godoc
// @Summary      List sensors
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  types.SensorsResponse
// @Router       /api/sensors [get]
func (s *server) handleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.SensorsResponse{Sensors: s.svc.Sensors()})
}

// handleLatest godoc
// @Summary      Latest reading of a sensor
// @Tags         sensors
// @Produce      json
// @Param        name  path      string  true  "Sensor name"
// @Success      200   {object}  types.Reading
// @Failure      404   {object}  types.ErrorResponse
// @Router       /api/sensors/{name}/latest [get]
func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rd, err := s.svc.Latest(name)
	if err != nil {
		if pipeline.IsNoReading(err) && s.opts.LatestFallback != nil {
			if cached, cerr := s.opts.LatestFallback.Get(r.Context(), name); cerr == nil {
				writeJSON(w, cached)
				return
			}
		}
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, rd)
}

// handleHistory godoc
// @Summary      Persisted readings since a point in time
// @Description  since accepts unix seconds, "<n>h", "<n>m", "now-<n>h" or "now-<n>m". Readings not yet flushed are not included.
// @Tags         history
// @Produce      json
// @Param        since  query     string  false  "Start of the window"  default(24h)
// @Success      200    {object}  types.HistoryResponse
// @Failure      400    {object}  types.ErrorResponse
// @Router       /api/history [get]
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("since")
	if expr == "" {
		expr = s.opts.DefaultSince
	}
	ts, err := since.Parse(expr, s.opts.Now())
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	rows, err := s.svc.History(r.Context(), ts)
	if err != nil {
		s.opts.Logger.Error().Err(err).Msg("history query failed")
		writeJSONError(w, statusFor(err), "history query failed")
		return
	}
	if rows == nil {
		rows = []types.Reading{}
	}
	writeJSON(w, types.HistoryResponse{Readings: rows})
}
