package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/funnelmkt/internal/crm"
	"github.com/hpungsan/funnelmkt/internal/db"
	"github.com/hpungsan/funnelmkt/internal/registry"
)

func setup(t *testing.T) (*httptest.Server, func(method, path, body string) *http.Response) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	srv := httptest.NewServer(NewHandler(database, nil))
	t.Cleanup(srv.Close)

	do := func(method, path, body string) *http.Response {
		req, err := http.NewRequest(method, srv.URL+path, bytes.NewBufferString(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}
	return srv, do
}

const validBody = `{
	"full_name": "Ana Torres",
	"email": "ana@acme.io",
	"phone": "600 123 456",
	"company_name": "Acme",
	"industry": "Retail",
	"company_size": "11-50",
	"priority": "daily",
	"interests": ["seo"],
	"contact_channels": ["email", "whatsapp"]
}`

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCreate(t *testing.T) {
	_, do := setup(t)

	resp := do(http.MethodPost, "/clients/", validBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var rec crm.ClientRecord
	decode(t, resp, &rec)
	assert.Len(t, rec.ID, 26)
	assert.Equal(t, crm.StageLead, rec.Stage)
	assert.Equal(t, crm.NoInteraction, rec.LastInteraction)
	assert.Equal(t, crm.SizeMedium, rec.CompanySize)
}

func TestCreate_Validation(t *testing.T) {
	_, do := setup(t)

	resp := do(http.MethodPost, "/clients/", `{"full_name":"x"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Status  int               `json:"status"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Equal(t, 422, body.Error.Status)
	assert.Equal(t, crm.MsgRequired, body.Error.Details["email"])
	assert.Equal(t, crm.MsgNoChannel, body.Error.Details["contact_channels"])
}

func TestCreate_BadJSON(t *testing.T) {
	_, do := setup(t)
	resp := do(http.MethodPost, "/clients/", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAndGet(t *testing.T) {
	_, do := setup(t)
	do(http.MethodPost, "/clients/", validBody)
	created := do(http.MethodPost, "/clients/", validBody)
	var rec crm.ClientRecord
	decode(t, created, &rec)

	resp := do(http.MethodGet, "/clients/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Items []crm.ClientRecord `json:"items"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Items, 2)
	assert.Equal(t, rec.ID, list.Items[1].ID)

	resp = do(http.MethodGet, "/clients/"+rec.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(http.MethodGet, "/clients/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStage(t *testing.T) {
	_, do := setup(t)
	var rec crm.ClientRecord
	decode(t, do(http.MethodPost, "/clients/", validBody), &rec)

	resp := do(http.MethodPatch, "/clients/"+rec.ID+"/stage", `{"stage":"proposal_sent"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated crm.ClientRecord
	decode(t, resp, &updated)
	assert.Equal(t, crm.StageProposalSent, updated.Stage)
	assert.Equal(t, rec.CompanyName, updated.CompanyName)

	resp = do(http.MethodPatch, "/clients/"+rec.ID+"/stage", `{"stage":"won"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(http.MethodPatch, "/clients/missing/stage", `{"stage":"Closed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, do := setup(t)
	do(http.MethodGet, "/clients/", "")
	resp := do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// The registry client and service agree on the wire format end to end.
func TestRegistryClientRoundTrip(t *testing.T) {
	srv, _ := setup(t)

	client, err := registry.New(registry.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	store := crm.NewStore(crm.WithRegistry(client))
	d := crm.DefaultDraft()
	d.FullName = "Bob Stone"
	d.Email = "bob@globex.com"
	d.Phone = "+1 555 0100 22"
	d.CompanyName = "Globex"
	d.Industry = "Energy"
	d.Interests = "solar, wind"
	d.ChannelIdx = []int{1}

	created, err := store.Create(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []crm.Channel{crm.ChannelPhone}, created.ContactChannels)
	assert.Equal(t, []string{"solar", "wind"}, created.Interests)

	listed, err := client.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}
