package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/funnelmkt/internal/cms"
	"github.com/hpungsan/funnelmkt/internal/config"
	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/errors"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

// pngBytes starts with the PNG signature so content sniffing accepts it.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type failingRegistry struct{}

func (failingRegistry) CreateClient(ctx context.Context, p crm.Payload) (*crm.ClientRecord, error) {
	return nil, errors.NewRemoteFailure(fmt.Errorf("registry returned 503"))
}

func setupTest(t *testing.T, opts ...crm.Option) *Handlers {
	t.Helper()
	opts = append([]crm.Option{crm.WithClock(func() time.Time { return testNow })}, opts...)
	return newHandlers(Options{
		Config:  config.DefaultConfig(),
		Store:   crm.NewStore(opts...),
		Version: "test",
	})
}

func client(id, name, company string) crm.ClientRecord {
	return crm.ClientRecord{
		ID:              id,
		FullName:        name,
		Email:           strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Phone:           "+34 600 000 000",
		CompanyName:     company,
		Industry:        "Retail",
		CompanySize:     crm.SizeSmall,
		Priority:        crm.PriorityWeekly,
		ContactChannels: []crm.Channel{crm.ChannelEmail},
		LastInteraction: crm.NoInteraction,
		Stage:           crm.StageLead,
		CreatedAt:       testNow.Unix(),
	}
}

func seedClients(n int) []crm.ClientRecord {
	out := make([]crm.ClientRecord, n)
	for i := range out {
		out[i] = client(fmt.Sprintf("c%02d", i+1), fmt.Sprintf("Person %02d", i+1), fmt.Sprintf("Company %02d", i+1))
	}
	return out
}

func validClientForm() url.Values {
	return url.Values{
		"full_name":       {"Ana Torres"},
		"email":           {"ana@acme.test"},
		"phone":           {"+34 611 222 333"},
		"company_name":    {"Acme"},
		"industry":        {"Software"},
		"company_size":    {"11-50"},
		"years_in_market": {"4"},
		"location":        {"Madrid"},
		"interests":       {"seo, ads"},
		"priority":        {"weekly"},
		"channel":         {"0", "2"},
	}
}

func postForm(path string, form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

// --- pages ---

func TestHandleLanding(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleLanding(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Turn visitors into clients") {
		t.Error("expected hero text")
	}
	if strings.Contains(body, `class="sidebar"`) {
		t.Error("landing page should not render the sidebar")
	}
}

func TestHandleDashboard(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(7)))

	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, httptest.NewRequest("GET", "/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="sidebar"`)
	assert.Contains(t, body, "Total clients")
	assert.Contains(t, body, "Person 07")
	assert.NotContains(t, body, "Person 02", "only the newest clients are listed")
	assert.Contains(t, body, "step 1 (Header)")
}

func TestHandleDashboard_HtmxReturnsContentOnly(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleDashboard(rec, req)

	if strings.Contains(rec.Body.String(), "<!DOCTYPE html>") {
		t.Error("htmx request should not include the layout")
	}
	if !strings.Contains(rec.Body.String(), "No clients yet") {
		t.Error("expected empty state")
	}
}

func TestHandleAnalytics(t *testing.T) {
	records := seedClients(4)
	records[0].Stage = crm.StageClosed
	h := setupTest(t, crm.WithRecords(records))

	rec := httptest.NewRecorder()
	h.HandleAnalytics(rec, httptest.NewRequest("GET", "/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Proposals sent")
	assert.Contains(t, body, `src="/analytics/pipeline"`)
	assert.Contains(t, body, "25%")
}

func TestHandleAnalytics_JSON(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(3)))

	req := httptest.NewRequest("GET", "/analytics", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleAnalytics(rec, req)

	var out struct {
		Cards []struct {
			Title string `json:"title"`
			Value string `json:"value"`
		} `json:"cards"`
		Stats crm.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Cards, 4)
	assert.Equal(t, "3", out.Cards[0].Value)
	assert.Equal(t, 3, out.Stats.Total)
}

func TestHandlePipelineChart(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(2)))

	rec := httptest.NewRecorder()
	h.HandlePipelineChart(rec, httptest.NewRequest("GET", "/analytics/pipeline", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "'unsafe-inline'")
	assert.Contains(t, csp, "https://go-echarts.github.io")
	assert.Contains(t, rec.Body.String(), "echarts.min.js")
}

func TestChartPolicy_RelativeAssets(t *testing.T) {
	policy := chartPolicy("/static/vendor/")
	assert.Contains(t, policy, "script-src 'self' 'unsafe-inline'")
}

// --- auth ---

func TestHandleLoginSubmit(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleLoginSubmit(rec, postForm("/login", url.Values{"email": {"a@b.com"}, "password": {"abcdefgh"}}, false))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Password must contain an uppercase letter") {
		t.Errorf("expected password message, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.HandleLoginSubmit(rec, postForm("/login", url.Values{"email": {"a@b.com"}, "password": {"Abcdefg1!"}}, false))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/analytics" {
		t.Errorf("Location = %q, want /analytics", loc)
	}
}

func TestHandleLoginSubmit_HtmxRedirect(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleLoginSubmit(rec, postForm("/login", url.Values{"email": {"a@b.com"}, "password": {"Abcdefg1!"}}, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/analytics", rec.Header().Get("HX-Redirect"))
}

func TestHandleRegisterValidate(t *testing.T) {
	h := setupTest(t)
	form := url.Values{"name": {"A B"}, "email": {"a@b.com"}, "password": {"Abcdefg1!"}, "confirm": {"Abcdefg1!"}}

	rec := httptest.NewRecorder()
	h.HandleRegisterValidate(rec, postForm("/register/validate", form, true))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `id="register-feedback"`)
	assert.NotContains(t, body, "disabled")

	form.Set("confirm", "x")
	rec = httptest.NewRecorder()
	h.HandleRegisterValidate(rec, postForm("/register/validate", form, true))
	body = rec.Body.String()
	assert.Contains(t, body, "Passwords do not match")
	assert.Contains(t, body, "disabled")
}

func TestHandleRegisterValidate_UntouchedFieldsAreQuiet(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleRegisterValidate(rec, postForm("/register/validate", url.Values{"name": {"A"}}, true))

	body := rec.Body.String()
	assert.NotContains(t, body, "is required")
	assert.Contains(t, body, "disabled")
}

func TestHandleRegisterSubmit(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleRegisterSubmit(rec, postForm("/register", url.Values{"name": {"A"}}, false))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email is required")

	form := url.Values{"name": {"A"}, "email": {"a@b.com"}, "password": {"abcdefgh"}, "confirm": {"abcdefgh"}}
	rec = httptest.NewRecorder()
	h.HandleRegisterSubmit(rec, postForm("/register", form, false))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

// --- crm ---

func TestHandleCRM_Tabs(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(2)))

	tests := []struct {
		tab  string
		want string
	}{
		{"", `name="full_name"`},
		{"create", `name="full_name"`},
		{"list", `id="client-list"`},
		{"segment", `id="segment-results"`},
		{"pipeline", `id="pipeline-board"`},
		{"bogus", `name="full_name"`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.HandleCRM(rec, httptest.NewRequest("GET", "/crm?tab="+tt.tab, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("tab %q: status = %d", tt.tab, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tt.want) {
			t.Errorf("tab %q: missing %s", tt.tab, tt.want)
		}
	}
}

func TestHandleCreateClient_Htmx(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleCreateClient(rec, postForm("/crm/clients", validClientForm(), true))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ana Torres from Acme was added as a Lead")
	assert.NotContains(t, body, "<!DOCTYPE html>")
	assert.NotContains(t, body, `value="Ana Torres"`, "form is reset after a create")

	clients := h.store.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, []crm.Channel{crm.ChannelEmail, crm.ChannelWhatsApp}, clients[0].ContactChannels)
	assert.Equal(t, []string{"seo", "ads"}, clients[0].Interests)
	assert.Equal(t, 4, clients[0].YearsInMarket)
}

func TestHandleCreateClient_RedirectsWithoutHtmx(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleCreateClient(rec, postForm("/crm/clients", validClientForm(), false))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/crm?tab=list", rec.Header().Get("Location"))
}

func TestHandleCreateClient_ValidationKeepsDraft(t *testing.T) {
	h := setupTest(t)
	form := validClientForm()
	form.Del("full_name")
	form.Del("channel")

	rec := httptest.NewRecorder()
	h.HandleCreateClient(rec, postForm("/crm/clients", form, true))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Full name is required")
	assert.Contains(t, body, crm.MsgNoChannel)
	assert.Contains(t, body, `value="ana@acme.test"`)
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, "Acme", h.store.Draft().CompanyName)
}

func TestHandleCreateClient_IgnoresBadChannelIndices(t *testing.T) {
	h := setupTest(t)
	form := validClientForm()
	form["channel"] = []string{"1", "1", "7", "x"}

	rec := httptest.NewRecorder()
	h.HandleCreateClient(rec, postForm("/crm/clients", form, true))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []crm.Channel{crm.ChannelPhone}, h.store.Clients()[0].ContactChannels)
}

func TestHandleCreateClient_RemoteFailure(t *testing.T) {
	h := setupTest(t, crm.WithRegistry(failingRegistry{}))

	rec := httptest.NewRecorder()
	h.HandleCreateClient(rec, postForm("/crm/clients", validClientForm(), true))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "could not be saved")
	assert.Contains(t, body, `value="Ana Torres"`)
	assert.Equal(t, 0, h.store.Len())
}

func TestHandleCreateClient_JSONError(t *testing.T) {
	h := setupTest(t)
	req := postForm("/crm/clients", url.Values{}, false)
	req.Header.Set("Accept", "application/json")

	rec := httptest.NewRecorder()
	h.HandleCreateClient(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var out struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "VALIDATION_FAILED", out.Error.Code)
	assert.Equal(t, crm.MsgRequired, out.Error.Details["email"])
}

func TestHandleListClients_PageFragment(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(12)))

	req := httptest.NewRequest("GET", "/crm/clients?page=2", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleListClients(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(body), `<section id="client-list"`))
	assert.Contains(t, body, "Page 2 of 2")
	assert.Contains(t, body, "Person 11")
	assert.NotContains(t, body, "Person 01")
}

func TestHandleListClients_QueryResetsPage(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(12)))
	h.store.SetPage(2)

	req := httptest.NewRequest("GET", "/crm/clients?q=company+1", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleListClients(rec, req)

	var page crm.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 3, page.Total) // Company 10, 11, 12
	assert.Equal(t, "company 1", h.store.Query())
}

func TestHandleListClients_NoMatches(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(2)))

	req := httptest.NewRequest("GET", "/crm/clients?q=zzz", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleListClients(rec, req)

	assert.Contains(t, rec.Body.String(), "No clients match")
}

func TestHandleClientDetail(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(2)))

	req := httptest.NewRequest("GET", "/crm/clients/c02", nil)
	req.SetPathValue("id", "c02")
	rec := httptest.NewRecorder()
	h.HandleClientDetail(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Person 02")
	require.NotNil(t, h.store.Selected())
	assert.Equal(t, "c02", h.store.Selected().ID)
}

func TestHandleClientDetail_NotFound(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/crm/clients/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.HandleClientDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Error("expected error code on the error page")
	}
}

func TestHandleClientDetail_NotFoundJSON(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/crm/clients/nope", nil)
	req.SetPathValue("id", "nope")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleClientDetail(rec, req)

	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "NOT_FOUND", out["error"]["code"])
	assert.Equal(t, float64(404), out["error"]["status"])
}

func TestHandleStage(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(2)))

	req := postForm("/crm/clients/c01/stage", url.Values{"stage": {"Proposal sent"}}, true)
	req.SetPathValue("id", "c01")
	rec := httptest.NewRecorder()
	h.HandleStage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="pipeline-board"`)
	got, err := h.store.Get("c01")
	require.NoError(t, err)
	assert.Equal(t, crm.StageProposalSent, got.Stage)

	// any stage may follow any other
	req = postForm("/crm/clients/c01/stage", url.Values{"stage": {"Lead"}, "from": {"detail"}}, false)
	req.SetPathValue("id", "c01")
	rec = httptest.NewRecorder()
	h.HandleStage(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/crm/clients/c01", rec.Header().Get("Location"))
	got, _ = h.store.Get("c01")
	assert.Equal(t, crm.StageLead, got.Stage)
}

func TestHandleStage_Errors(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(1)))

	req := postForm("/crm/clients/c01/stage", url.Values{"stage": {"Won"}}, false)
	req.SetPathValue("id", "c01")
	rec := httptest.NewRecorder()
	h.HandleStage(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = postForm("/crm/clients/zz/stage", url.Values{"stage": {"Closed"}}, false)
	req.SetPathValue("id", "zz")
	rec = httptest.NewRecorder()
	h.HandleStage(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleReorder(t *testing.T) {
	h := setupTest(t, crm.WithRecords(seedClients(3)))

	rec := httptest.NewRecorder()
	h.HandleReorder(rec, postForm("/crm/reorder", url.Values{"from": {"c03"}, "to": {"c01"}}, true))

	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	for _, c := range h.store.Clients() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c03", "c01", "c02"}, ids)

	// unknown ids leave the order alone
	rec = httptest.NewRecorder()
	h.HandleReorder(rec, postForm("/crm/reorder", url.Values{"from": {"c03"}, "to": {"zz"}}, false))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "c03", h.store.Clients()[0].ID)
}

func TestHandleSegment(t *testing.T) {
	records := seedClients(3)
	records[0].Location = "Madrid"
	records[0].Interests = []string{"SEO", "ads"}
	records[1].Location = "Barcelona"
	records[2].Location = "madrid centro"
	h := setupTest(t, crm.WithRecords(records))

	rec := httptest.NewRecorder()
	h.HandleSegment(rec, postForm("/crm/segment", url.Values{"location": {"MADRID"}, "interests": {"seo"}}, true))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "1 client(s) in this segment")
	assert.Contains(t, body, "Person 01")
	assert.NotContains(t, body, "Person 03")

	// the snapshot does not follow later changes
	h.store.Load(nil)
	_, snapshot, ran := h.store.Segment()
	assert.True(t, ran)
	assert.Len(t, snapshot, 1)
}

// --- cms ---

func TestHandleCMS_StepsAndPreview(t *testing.T) {
	h := setupTest(t)

	for want := 2; want <= 3; want++ {
		rec := httptest.NewRecorder()
		h.HandleNext(rec, postForm("/cms/next", nil, true))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, want, h.wizard.Step())
		assert.Empty(t, rec.Header().Get("HX-Trigger"))
	}

	rec := httptest.NewRecorder()
	h.HandleNext(rec, postForm("/cms/next", nil, true))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, h.wizard.Step(), "review step does not advance")
	assert.Equal(t, 1, h.previews.Len(), "preview opened exactly once")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "openPreview")
	assert.Contains(t, rec.Body.String(), "Preview ready")

	var trigger map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &trigger))
	location := trigger["openPreview"]["url"]
	require.True(t, strings.HasPrefix(location, cms.PreviewURLPrefix))

	id := strings.TrimPrefix(location, cms.PreviewURLPrefix)
	req := httptest.NewRequest("GET", location, nil)
	req.SetPathValue("id", id)
	rec = httptest.NewRecorder()
	h.HandlePreview(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, previewPolicy, rec.Header().Get("Content-Security-Policy"))
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
}

func TestHandleNext_RedirectCarriesPreview(t *testing.T) {
	h := setupTest(t)
	h.HandleNext(httptest.NewRecorder(), postForm("/cms/next", nil, false))
	h.HandleNext(httptest.NewRecorder(), postForm("/cms/next", nil, false))

	rec := httptest.NewRecorder()
	h.HandleNext(rec, postForm("/cms/next", nil, false))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/cms?preview="), loc)

	rec = httptest.NewRecorder()
	h.HandleCMS(rec, httptest.NewRequest("GET", loc, nil))
	assert.Contains(t, rec.Body.String(), `target="_blank"`)
}

func TestHandleNext_PreviewBlocked(t *testing.T) {
	previews := cms.NewPreviewStore(0)
	h := newHandlers(Options{
		Store:    crm.NewStore(),
		Wizard:   cms.NewWizard(previews, nil),
		Previews: previews,
	})
	for i := 0; i < 2; i++ {
		h.HandleNext(httptest.NewRecorder(), postForm("/cms/next", nil, true))
	}

	rec := httptest.NewRecorder()
	h.HandleNext(rec, postForm("/cms/next", nil, true))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "preview could not be opened")
	assert.Equal(t, 3, h.wizard.Step())
}

func TestHandlePrevious_FloorsAtFirstStep(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandlePrevious(rec, postForm("/cms/previous", nil, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.wizard.Step())
}

func TestHandleSettings(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleSettings(rec, postForm("/cms/settings", url.Values{"title": {"Spring sale"}, "font_size": {"20"}}, true))
	require.Equal(t, http.StatusOK, rec.Code)

	s := h.wizard.Document().Settings
	assert.Equal(t, "Spring sale", s.Title)
	assert.Equal(t, 20, s.FontSize)
	assert.Equal(t, cms.DefaultBackgroundColor, s.BackgroundColor)

	// a later step only posts its own fields
	rec = httptest.NewRecorder()
	h.HandleSettings(rec, postForm("/cms/settings", url.Values{"footer_text": {"Bye"}}, true))
	require.Equal(t, http.StatusOK, rec.Code)
	s = h.wizard.Document().Settings
	assert.Equal(t, "Spring sale", s.Title)
	assert.Equal(t, "Bye", s.FooterText)
	assert.Equal(t, 20, s.FontSize)
}

func TestHandleSettings_Invalid(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleSettings(rec, postForm("/cms/settings", url.Values{"background_color": {"red;}"}, "font_size": {"big"}}, true))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Background color must be a hex color")
	assert.Contains(t, body, "Font size must be between")
	assert.Equal(t, cms.DefaultBackgroundColor, h.wizard.Document().Settings.BackgroundColor)
}

func TestHandleTitlesAndContents(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleAddTitle(rec, postForm("/cms/titles", url.Values{"text": {"  "}}, true))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title text is required")

	rec = httptest.NewRecorder()
	h.HandleAddTitle(rec, postForm("/cms/titles", url.Values{"text": {"Welcome"}}, true))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")

	titles := h.wizard.Document().Titles
	require.Len(t, titles, 1)

	req := postForm("/cms/titles/"+titles[0].ID+"/delete", nil, true)
	req.SetPathValue("id", titles[0].ID)
	rec = httptest.NewRecorder()
	h.HandleRemoveTitle(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.wizard.Document().Titles)

	rec = httptest.NewRecorder()
	h.HandleAddContent(rec, postForm("/cms/contents", url.Values{"text": {"**bold** offer"}}, false))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, h.wizard.Document().Contents, 1)

	req = postForm("/cms/contents/zz/delete", nil, false)
	req.SetPathValue("id", "zz")
	rec = httptest.NewRecorder()
	h.HandleRemoveContent(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func uploadRequest(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/cms/images", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("HX-Request", "true")
	return req
}

func TestHandleImages(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleAddImage(rec, uploadRequest(t, "logo.png", pngBytes))
	require.Equal(t, http.StatusOK, rec.Code)

	images := h.wizard.Document().Images
	require.Len(t, images, 1)
	img := images[0]
	assert.Equal(t, "image/png", img.ContentType)

	req := httptest.NewRequest("GET", img.URL, nil)
	req.SetPathValue("id", img.ID)
	rec = httptest.NewRecorder()
	h.HandleImage(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())

	del := postForm("/cms/images/"+img.ID+"/delete", nil, true)
	del.SetPathValue("id", img.ID)
	h.HandleRemoveImage(httptest.NewRecorder(), del)

	rec = httptest.NewRecorder()
	h.HandleImage(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, "removed image is revoked")
}

func TestHandleAddImage_RejectsNonImage(t *testing.T) {
	h := setupTest(t)

	rec := httptest.NewRecorder()
	h.HandleAddImage(rec, uploadRequest(t, "notes.txt", []byte("plain text")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is not an image")
	assert.Empty(t, h.wizard.Document().Images)
}

func TestHandleReset(t *testing.T) {
	h := setupTest(t)
	h.HandleAddImage(httptest.NewRecorder(), uploadRequest(t, "logo.png", pngBytes))
	h.HandleNext(httptest.NewRecorder(), postForm("/cms/next", nil, true))

	rec := httptest.NewRecorder()
	h.HandleReset(rec, postForm("/cms/reset", nil, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, h.wizard.Step())
	assert.Empty(t, h.wizard.Document().Images)
	assert.Equal(t, 0, h.wizard.Images().Len())
}

func TestHandlePreview_Unknown(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/cms/preview/zz", nil)
	req.SetPathValue("id", "zz")
	rec := httptest.NewRecorder()
	h.HandlePreview(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
