package web

import (
	"io/fs"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hpungsan/funnelmkt/internal/analytics"
	"github.com/hpungsan/funnelmkt/internal/auth"
	"github.com/hpungsan/funnelmkt/internal/cms"
	"github.com/hpungsan/funnelmkt/internal/config"
	"github.com/hpungsan/funnelmkt/internal/crm"
)

// Handlers contains HTTP route handlers for the admin UI.
type Handlers struct {
	cfg      *config.Config
	store    *crm.Store
	wizard   *cms.Wizard
	previews *cms.PreviewStore
	renderer *Renderer
	logger   *zap.Logger
}

func newHandlers(opts Options) *Handlers {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = crm.NewStore(crm.WithPageSize(cfg.PageSize))
	}
	wizard, previews := opts.Wizard, opts.Previews
	if wizard == nil {
		previews = cms.NewPreviewStore(cfg.PreviewRetention)
		wizard = cms.NewWizard(previews, cms.NewImageStore())
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic("template sub-FS: " + err.Error())
	}

	return &Handlers{
		cfg:      cfg,
		store:    store,
		wizard:   wizard,
		previews: previews,
		renderer: NewRenderer(templateSub, opts.Version, logger),
		logger:   logger,
	}
}

// DashboardPageData is the template data for the dashboard.
type DashboardPageData struct {
	PageData
	Cards    []analytics.Card
	Recent   []crm.ClientRecord
	Step     int
	StepName string
	Remote   bool
	Clients  int
}

// AnalyticsPageData is the template data for the analytics page.
type AnalyticsPageData struct {
	PageData
	Cards      []analytics.Card
	Stats      crm.Stats
	Priorities []crm.Priority
	Sizes      []crm.CompanySize
	Conversion int
}

// AuthPageData backs the login and register pages.
type AuthPageData struct {
	PageData
	Name   string
	Email  string
	Errors map[string]string
	// CanSubmit enables the submit button.
	CanSubmit bool
}

// recentLimit is how many clients the dashboard lists.
const recentLimit = 5

// HandleLanding handles GET /: the public landing page.
func (h *Handlers) HandleLanding(w http.ResponseWriter, r *http.Request) {
	data := h.renderer.page("FunnelMKT", "")
	data.Public = true
	h.renderer.renderPage(w, r, "landing", data)
}

// HandleDashboard handles GET /dashboard: headline cards, the newest
// clients and the CMS session at a glance.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	clients := h.store.Clients()
	recent := clients
	if len(recent) > recentLimit {
		recent = recent[len(recent)-recentLimit:]
	}
	step := h.wizard.Step()
	h.renderer.renderPage(w, r, "dashboard", DashboardPageData{
		PageData: h.renderer.page("Dashboard", "dashboard"),
		Cards:    analytics.Cards(h.store.Stats()),
		Recent:   recent,
		Step:     step,
		StepName: cms.StepNames[step],
		Remote:   h.store.Remote(),
		Clients:  len(clients),
	})
}

// HandleAnalytics handles GET /analytics.
func (h *Handlers) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"cards": analytics.Cards(stats),
			"stats": stats,
		})
		return
	}
	h.renderer.renderPage(w, r, "analytics", AnalyticsPageData{
		PageData:   h.renderer.page("Analytics", "analytics"),
		Cards:      analytics.Cards(stats),
		Stats:      stats,
		Priorities: crm.Priorities(),
		Sizes:      crm.CompanySizes(),
		Conversion: analytics.Share(stats.ByStage[crm.StageClosed], stats.Total),
	})
}

// HandlePipelineChart handles GET /analytics/pipeline: a standalone chart
// document embedded by the analytics page.
func (h *Handlers) HandlePipelineChart(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, analytics.PipelineChart)
}

// HandleChannelChart handles GET /analytics/channels.
func (h *Handlers) HandleChannelChart(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, analytics.ChannelChart)
}

func (h *Handlers) renderChart(w http.ResponseWriter, r *http.Request, chart func(crm.Stats, analytics.ChartOptions) (string, error)) {
	assets := h.cfg.ChartAssetsHost
	html, err := chart(h.store.Stats(), analytics.ChartOptions{AssetsHost: assets})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if assets == "" {
		assets = defaultChartAssets
	}
	w.Header().Set("Content-Security-Policy", chartPolicy(assets))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// HandleLogin handles GET /login.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "login", h.authPage("Log in", "", "", nil, false))
}

// HandleLoginSubmit handles POST /login. Valid input goes to the analytics
// page; no credentials are checked and no session is created.
func (h *Handlers) HandleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	form := auth.LoginForm{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	state := form.Validate()
	if !state.CanSubmit {
		h.renderer.renderPageStatus(w, r, http.StatusUnprocessableEntity, "login",
			h.authPage("Log in", "", form.Email, state.Errors, false))
		return
	}
	redirect(w, r, "/analytics")
}

// HandleRegister handles GET /register.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "register", h.authPage("Create account", "", "", nil, false))
}

// HandleRegisterSubmit handles POST /register. Valid input goes to the login
// page; nothing is stored.
func (h *Handlers) HandleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	form := registerForm(r)
	state := form.Validate()
	if !state.CanSubmit {
		h.renderer.renderPageStatus(w, r, http.StatusUnprocessableEntity, "register",
			h.authPage("Create account", form.Name, form.Email, state.Errors, false))
		return
	}
	redirect(w, r, "/login")
}

// HandleRegisterValidate handles POST /register/validate: the htmx live
// validation fragment.
func (h *Handlers) HandleRegisterValidate(w http.ResponseWriter, r *http.Request) {
	form := registerForm(r)
	state := form.LiveValidate()
	h.renderer.renderBlock(w, http.StatusOK, "register", "register-feedback",
		h.authPage("Create account", form.Name, form.Email, state.Errors, state.CanSubmit))
}

func (h *Handlers) authPage(title, name, email string, errs map[string]string, canSubmit bool) AuthPageData {
	data := AuthPageData{
		PageData:  h.renderer.page(title, ""),
		Name:      name,
		Email:     email,
		Errors:    errs,
		CanSubmit: canSubmit,
	}
	data.Public = true
	return data
}

func registerForm(r *http.Request) auth.RegisterForm {
	return auth.RegisterForm{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}
}

// redirect sends htmx requests an HX-Redirect and everything else a 303.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
