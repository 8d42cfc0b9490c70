package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	analytics "campus-energy/internal/analytics/application"
	"campus-energy/internal/auth"
	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/freshness"
	ingestapp "campus-energy/internal/ingest/application"
)

// Analytics serves the dashboard projections.
type Analytics interface {
	ThirtyDayTotals(ctx context.Context) (energy.DailyMetricAverages, error)
	FuelEfficiencySeries(ctx context.Context) ([]analytics.FuelEfficiencyPoint, error)
	BuildingSeries(ctx context.Context, name string) ([]analytics.BuildingReading, error)
	WeeklyCombined(ctx context.Context) ([]analytics.WeeklyTotal, error)
	DailyWithinWeek(ctx context.Context, weekStart time.Time) ([]analytics.DailyTotal, error)
	LifetimeVsPeriod(ctx context.Context, period string) (analytics.TreeTotals, error)
	SolarSiteTotals(ctx context.Context) ([]analytics.SiteTotal, error)
}

// Freshness reports the latest ingestion time of a table.
type Freshness interface {
	Latest(ctx context.Context, table energy.Table) (freshness.Freshness, error)
}

// Importer normalizes and stores an uploaded file.
type Importer interface {
	Import(ctx context.Context, buf []byte, kind energy.SourceKind) (ingestapp.ImportResult, error)
}

// Sources stores the electricity-sources workbook.
type Sources interface {
	Save(buf []byte) error
	Load() ([]byte, error)
}

// Deps wires the router. Auth may be nil to serve every route anonymously.
type Deps struct {
	Analytics      Analytics
	Freshness      Freshness
	Importer       Importer
	Sources        Sources
	Auth           *auth.Middleware
	Logger         *zap.Logger
	CORSOrigins    []string
	MaxUploadBytes int64
	Clock          energy.Clock
}

// NewRouter builds the HTTP handler for the dashboard API.
func NewRouter(deps Deps) (http.Handler, error) {
	if deps.Analytics == nil || deps.Freshness == nil || deps.Importer == nil || deps.Sources == nil {
		return nil, errors.New("apihttp: analytics, freshness, importer and sources are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = energy.SystemClock{}
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &server{deps: deps, logger: deps.Logger}
	r := mux.NewRouter()

	r.HandleFunc("/bloomdate", s.freshness(energy.TableDaily)).Methods(http.MethodGet)
	r.HandleFunc("/athenadate", s.freshness(energy.TableHourly)).Methods(http.MethodGet)
	r.HandleFunc("/api/freshness/{table}", s.freshnessByName).Methods(http.MethodGet)
	r.HandleFunc("/getenergy", s.getEnergy).Methods(http.MethodGet)
	r.HandleFunc("/getbubblechart", s.getBubbleChart).Methods(http.MethodGet)
	r.HandleFunc("/getcombinedweekly/daily", s.getDailyWithinWeek).Methods(http.MethodGet)
	r.HandleFunc("/getcombinedweekly", s.getCombinedWeekly).Methods(http.MethodGet)
	r.HandleFunc("/hourlyenergybybuilding", s.getBuildingSeries).Methods(http.MethodGet)
	r.HandleFunc("/gettreedata", s.getTreeData).Methods(http.MethodGet)
	r.HandleFunc("/getsolartotals", s.getSolarTotals).Methods(http.MethodGet)
	r.HandleFunc("/getPieChartData", s.getPieChartData).Methods(http.MethodGet)
	r.HandleFunc("/upload-piechart-csv", s.uploadPieChart).Methods(http.MethodPost)
	r.HandleFunc("/api/upload/daily", s.upload(energy.SourceDailyXLSX)).Methods(http.MethodPost)
	r.HandleFunc("/api/upload/hourly", s.upload(energy.SourceHourlyCSV)).Methods(http.MethodPost)
	r.HandleFunc("/api/reports/summary.{format:xlsx|pdf}", s.getSummaryReport).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if deps.Auth != nil {
		r.Use(deps.Auth.Wrap)
	}

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	return loggingMiddleware(cors(r), deps.Logger), nil
}

type server struct {
	deps   Deps
	logger *zap.Logger
}
