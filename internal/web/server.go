package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hpungsan/funnelmkt/internal/cms"
	"github.com/hpungsan/funnelmkt/internal/config"
	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// htmxOrigin serves the htmx script referenced by the layout.
const htmxOrigin = "https://unpkg.com"

// defaultChartAssets is where go-echarts loads ECharts from when
// chart_assets_host is unset.
const defaultChartAssets = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Options wires the admin UI to its state containers.
type Options struct {
	Config *config.Config
	Store  *crm.Store
	// Wizard and Previews go together: the wizard must open previews into
	// Previews. When Wizard is nil both are created from Config.
	Wizard   *cms.Wizard
	Previews *cms.PreviewStore
	Logger   *zap.Logger
	Version  string
}

// NewHandler builds the admin UI route table wrapped in the request id,
// access log, metrics and security header middleware.
func NewHandler(opts Options) http.Handler {
	h := newHandlers(opts)

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleLanding)
	mux.HandleFunc("GET /dashboard", h.HandleDashboard)
	mux.HandleFunc("GET /login", h.HandleLogin)
	mux.HandleFunc("POST /login", h.HandleLoginSubmit)
	mux.HandleFunc("GET /register", h.HandleRegister)
	mux.HandleFunc("POST /register", h.HandleRegisterSubmit)
	mux.HandleFunc("POST /register/validate", h.HandleRegisterValidate)

	mux.HandleFunc("GET /analytics", h.HandleAnalytics)
	mux.HandleFunc("GET /analytics/pipeline", h.HandlePipelineChart)
	mux.HandleFunc("GET /analytics/channels", h.HandleChannelChart)

	mux.HandleFunc("GET /crm", h.HandleCRM)
	mux.HandleFunc("POST /crm/clients", h.HandleCreateClient)
	mux.HandleFunc("GET /crm/clients", h.HandleListClients)
	mux.HandleFunc("GET /crm/clients/{id}", h.HandleClientDetail)
	mux.HandleFunc("POST /crm/clients/{id}/stage", h.HandleStage)
	mux.HandleFunc("POST /crm/reorder", h.HandleReorder)
	mux.HandleFunc("POST /crm/segment", h.HandleSegment)

	mux.HandleFunc("GET /cms", h.HandleCMS)
	mux.HandleFunc("POST /cms/next", h.HandleNext)
	mux.HandleFunc("POST /cms/previous", h.HandlePrevious)
	mux.HandleFunc("POST /cms/reset", h.HandleReset)
	mux.HandleFunc("POST /cms/settings", h.HandleSettings)
	mux.HandleFunc("POST /cms/titles", h.HandleAddTitle)
	mux.HandleFunc("POST /cms/titles/{id}/delete", h.HandleRemoveTitle)
	mux.HandleFunc("POST /cms/contents", h.HandleAddContent)
	mux.HandleFunc("POST /cms/contents/{id}/delete", h.HandleRemoveContent)
	mux.HandleFunc("POST /cms/images", h.HandleAddImage)
	mux.HandleFunc("POST /cms/images/{id}/delete", h.HandleRemoveImage)
	mux.HandleFunc("GET /cms/images/{id}", h.HandleImage)
	mux.HandleFunc("GET /cms/preview/{id}", h.HandlePreview)

	mux.Handle("GET /metrics", promhttp.Handler())

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return middleware.Chain("web", h.logger, securityHeaders(mux))
}

// NewServer creates the admin UI HTTP server on the configured bind and port.
func NewServer(opts Options) *http.Server {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
		opts.Config = cfg
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           NewHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
// Handlers serving standalone documents replace the policy.
func securityHeaders(next http.Handler) http.Handler {
	policy := "default-src 'self'; script-src 'self' " + htmxOrigin + "; style-src 'self'; img-src 'self' data:; frame-ancestors 'self'"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", policy)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		next.ServeHTTP(w, r)
	})
}

// chartPolicy allows the inline script go-echarts emits and the ECharts
// bundle from assetsHost.
func chartPolicy(assetsHost string) string {
	src := "'self'"
	if u, err := url.Parse(assetsHost); err == nil && u.Scheme != "" && u.Host != "" {
		src += " " + u.Scheme + "://" + u.Host
	}
	return "default-src 'self'; script-src " + src + " 'unsafe-inline'; style-src 'self' 'unsafe-inline'; frame-ancestors 'self'"
}

// previewPolicy allows the inline stylesheet of a generated page and its
// images; no scripts.
const previewPolicy = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self'"

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server listening", zap.String("url", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
