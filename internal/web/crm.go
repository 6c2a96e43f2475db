package web

import (
	"net/http"
	"strconv"

	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/errors"
	"github.com/hpungsan/funnelmkt/internal/middleware"
)

// CRM tabs.
const (
	TabCreate   = "create"
	TabList     = "list"
	TabSegment  = "segment"
	TabPipeline = "pipeline"
)

var crmTabs = []string{TabCreate, TabList, TabSegment, TabPipeline}

// CRMPageData is the template data for every CRM tab and fragment.
type CRMPageData struct {
	PageData
	Tab  string
	Tabs []string

	Draft    crm.Draft
	Errors   map[string]string
	Created  *crm.ClientRecord
	Creating bool
	Remote   bool

	Query string
	Page  crm.Page

	Segment   crm.SegmentPredicate
	Segmented []crm.ClientRecord
	HasRun    bool

	Columns []crm.StageColumn

	Stages     []crm.Stage
	Priorities []crm.Priority
	Sizes      []crm.CompanySize
	Channels   []crm.Channel
}

// ClientPageData is the template data for the client detail page.
type ClientPageData struct {
	PageData
	Client *crm.ClientRecord
	Stages []crm.Stage
}

func (h *Handlers) crmPage(tab string) CRMPageData {
	pred, segmented, ran := h.store.Segment()
	return CRMPageData{
		PageData:   h.renderer.page("CRM", "crm"),
		Tab:        tab,
		Tabs:       crmTabs,
		Draft:      h.store.Draft(),
		Creating:   h.store.Creating(),
		Remote:     h.store.Remote(),
		Query:      h.store.Query(),
		Page:       h.store.Page(),
		Segment:    pred,
		Segmented:  segmented,
		HasRun:     ran,
		Columns:    h.store.ByStage(),
		Stages:     crm.Stages(),
		Priorities: crm.Priorities(),
		Sizes:      crm.CompanySizes(),
		Channels:   crm.Channels(),
	}
}

func validTab(tab string) string {
	for _, t := range crmTabs {
		if t == tab {
			return t
		}
	}
	return TabCreate
}

// HandleCRM handles GET /crm?tab=create|list|segment|pipeline.
func (h *Handlers) HandleCRM(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "crm", h.crmPage(validTab(r.URL.Query().Get("tab"))))
}

// HandleCreateClient handles POST /crm/clients: submit the create form.
func (h *Handlers) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form body"))
		return
	}
	draft := draftFromForm(r)
	h.store.SetDraft(draft)

	rec, err := h.store.Create(r.Context(), draft)
	if err != nil {
		h.createFailed(w, r, draft, err)
		return
	}

	origin := "local"
	if h.store.Remote() {
		origin = "registry"
	}
	middleware.RecordClientCreated(origin)

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, rec)
		return
	}
	if !isHTMX(r) {
		http.Redirect(w, r, "/crm?tab="+TabList, http.StatusSeeOther)
		return
	}
	data := h.crmPage(TabCreate)
	data.Created = rec
	h.renderer.renderBlock(w, http.StatusOK, "crm", "create-form", data)
}

// createFailed re-renders the form with the draft intact: field messages
// for validation failures, a single alert for registry failures.
func (h *Handlers) createFailed(w http.ResponseWriter, r *http.Request, draft crm.Draft, err error) {
	var status int
	data := h.crmPage(TabCreate)
	data.Draft = draft

	switch {
	case errors.Is(err, errors.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
		data.Errors = errors.FieldErrors(err)
	case errors.Is(err, errors.ErrRemoteFailure):
		middleware.RecordRegistryError()
		status = http.StatusBadGateway
		data.Alert = "The client could not be saved. Check the registry and try again."
	default:
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		h.renderer.renderError(w, r, err)
		return
	}
	if isHTMX(r) {
		h.renderer.renderBlock(w, status, "crm", "create-form", data)
		return
	}
	h.renderer.renderPageStatus(w, r, status, "crm", data)
}

// draftFromForm reads the create form. Channels arrive as indices into
// crm.Channels(); out-of-range and duplicate indices are dropped.
func draftFromForm(r *http.Request) crm.Draft {
	d := crm.Draft{
		FullName:         r.PostFormValue("full_name"),
		Position:         r.PostFormValue("position"),
		Email:            r.PostFormValue("email"),
		Phone:            r.PostFormValue("phone"),
		CompanyName:      r.PostFormValue("company_name"),
		Industry:         r.PostFormValue("industry"),
		CompanySize:      r.PostFormValue("company_size"),
		YearsInMarket:    r.PostFormValue("years_in_market"),
		Website:          r.PostFormValue("website"),
		SocialMedia:      r.PostFormValue("social_media"),
		GeneralGoal:      r.PostFormValue("general_goal"),
		SpecificGoals:    r.PostFormValue("specific_goals"),
		Obstacles:        r.PostFormValue("obstacles"),
		PriorResults:     r.PostFormValue("prior_results"),
		Location:         r.PostFormValue("location"),
		Interests:        r.PostFormValue("interests"),
		PurchaseBehavior: r.PostFormValue("purchase_behavior"),
		Priority:         r.PostFormValue("priority"),
	}
	n := len(crm.Channels())
	for _, v := range r.PostForm["channel"] {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 0 || idx >= n || d.HasChannel(idx) {
			continue
		}
		d.ChannelIdx = append(d.ChannelIdx, idx)
	}
	return d
}

// HandleListClients handles GET /crm/clients?q=&page=. A new query resets
// the page to 1. htmx requests get the list fragment only.
func (h *Handlers) HandleListClients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("q") {
		h.store.SetQuery(q.Get("q"))
	}
	if q.Has("page") {
		h.store.SetPage(parseIntParam(r, "page", 1))
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, h.store.Page())
		return
	}
	data := h.crmPage(TabList)
	if isHTMX(r) {
		h.renderer.renderBlock(w, http.StatusOK, "crm", "client-list", data)
		return
	}
	h.renderer.renderPage(w, r, "crm", data)
}

// HandleClientDetail handles GET /crm/clients/{id}.
func (h *Handlers) HandleClientDetail(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Select(r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, rec)
		return
	}
	h.renderer.renderPage(w, r, "client", ClientPageData{
		PageData: h.renderer.page(rec.FullName, "crm"),
		Client:   rec,
		Stages:   crm.Stages(),
	})
}

// HandleStage handles POST /crm/clients/{id}/stage. Any stage may follow
// any other.
func (h *Handlers) HandleStage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := h.store.TransitionStage(id, crm.Stage(r.PostFormValue("stage")))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound("client", id))
		return
	}

	switch {
	case wantsJSON(r):
		rec, err := h.store.Get(id)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		renderJSON(w, http.StatusOK, rec)
	case isHTMX(r):
		h.renderer.renderBlock(w, http.StatusOK, "crm", "pipeline-board", h.crmPage(TabPipeline))
	case r.PostFormValue("from") == "detail":
		http.Redirect(w, r, "/crm/clients/"+id, http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/crm?tab="+TabPipeline, http.StatusSeeOther)
	}
}

// HandleReorder handles POST /crm/reorder: move client "from" to the
// position of client "to". Unknown ids leave the order unchanged.
func (h *Handlers) HandleReorder(w http.ResponseWriter, r *http.Request) {
	h.store.Reorder(r.PostFormValue("from"), r.PostFormValue("to"))

	if isHTMX(r) {
		h.renderer.renderBlock(w, http.StatusOK, "crm", "client-list", h.crmPage(TabList))
		return
	}
	http.Redirect(w, r, "/crm?tab="+TabList, http.StatusSeeOther)
}

// HandleSegment handles POST /crm/segment: take a snapshot of the clients
// matching the predicate.
func (h *Handlers) HandleSegment(w http.ResponseWriter, r *http.Request) {
	results := h.store.RunSegment(crm.SegmentPredicate{
		Location:         r.PostFormValue("location"),
		Interests:        r.PostFormValue("interests"),
		PurchaseBehavior: r.PostFormValue("purchase_behavior"),
	})

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"items": results})
		return
	}
	data := h.crmPage(TabSegment)
	if isHTMX(r) {
		h.renderer.renderBlock(w, http.StatusOK, "crm", "segment-results", data)
		return
	}
	h.renderer.renderPage(w, r, "crm", data)
}
