package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/extraction"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/storage"
	"github.com/Veraticus/the-budget-must-balance/internal/testutil"
)

func newTestServer(t *testing.T, completion string) (*httptest.Server, *testutil.TestLedger) {
	t.Helper()
	logger := common.DiscardLogger()
	tl := testutil.SetupLedger(t, storage.BackendSQLite)

	completer := &testutil.StubCompleter{Content: completion}
	if completion == "" {
		completer.Err = common.ErrNoCredential
	}
	transcriber := &testutil.StubTranscriber{Text: "my salary is $3,000.00"}

	pipeline := extraction.NewPipeline(transcriber, completer, tl.Store, logger)
	srv := httptest.NewServer(NewServer(tl.Store, extraction.NewSession(pipeline, logger), logger).Routes())
	t.Cleanup(srv.Close)
	return srv, tl
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestRecordEndpoints(t *testing.T) {
	srv, tl := newTestServer(t, "")
	store := tl.Store

	resp, body := do(t, http.MethodPost, srv.URL+"/incomes", `{"name":"Salary","amount":1200,"period":"yearly"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	income := body["income"].(map[string]any)
	id := income["id"].(string)
	assert.Equal(t, "manual", income["source"])

	resp, body = do(t, http.MethodPost, srv.URL+"/expenses", `{"name":"Rent","amount":"30","period":"static","category":"housing"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	expenseID := body["expense"].(map[string]any)["id"].(string)

	resp, body = do(t, http.MethodGet, srv.URL+"/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, "100", summary["totalMonthlyIncome"])
	assert.Equal(t, "30", summary["totalMonthlyExpenses"])
	assert.Equal(t, "70", summary["monthlyAvailable"])

	resp, body = do(t, http.MethodPatch, srv.URL+"/incomes/"+id, `{"amount":2400}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["income"].(map[string]any)["id"])
	assert.True(t, store.TotalMonthlyIncome().Equal(decimal.NewFromInt(200)))

	resp, _ = do(t, http.MethodPatch, srv.URL+"/expenses/"+expenseID, `{"category":"utilities"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "utilities", store.Expenses()[0].Category)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/expenses/"+expenseID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, store.Expenses())

	resp, body = do(t, http.MethodGet, srv.URL+"/incomes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["incomes"], 1)

	persisted := tl.Persisted()
	require.Len(t, persisted.Incomes, 1)
	assert.Equal(t, id, persisted.Incomes[0].ID)
	assert.True(t, persisted.Incomes[0].Amount.Equal(decimal.NewFromInt(2400)))
	assert.Empty(t, persisted.Expenses)
}

func TestRecordEndpoints_Errors(t *testing.T) {
	srv, tl := newTestServer(t, "")
	store := tl.Store

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "malformed json", method: http.MethodPost, path: "/incomes", body: `{`, status: http.StatusBadRequest},
		{name: "empty name", method: http.MethodPost, path: "/incomes", body: `{"name":"","amount":10,"period":"monthly"}`, status: http.StatusBadRequest},
		{name: "negative amount", method: http.MethodPost, path: "/expenses", body: `{"name":"Gym","amount":-5,"period":"monthly"}`, status: http.StatusBadRequest},
		{name: "static income", method: http.MethodPost, path: "/incomes", body: `{"name":"Job","amount":5,"period":"static"}`, status: http.StatusBadRequest},
		{name: "non-numeric amount", method: http.MethodPost, path: "/expenses", body: `{"name":"Gym","amount":"lots","period":"monthly"}`, status: http.StatusBadRequest},
		{name: "update unknown income", method: http.MethodPatch, path: "/incomes/nope", body: `{"amount":10}`, status: http.StatusNoContent},
		{name: "delete unknown expense", method: http.MethodDelete, path: "/expenses/nope", status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusBadRequest {
				assert.NotEmpty(t, body["error"])
			}
		})
	}

	assert.Empty(t, store.Incomes())
	assert.Empty(t, store.Expenses())
}

func TestUtteranceEndpoint(t *testing.T) {
	t.Run("structured extraction", func(t *testing.T) {
		srv, tl := newTestServer(t, `{"expenses":[{"name":"Netflix","amount":15.99,"period":"monthly","category":"entertainment"}],"message":"Added Netflix"}`)

		resp, body := do(t, http.MethodPost, srv.URL+"/utterances", `{"text":"netflix is 15.99 a month"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "committed", body["path"])
		assert.Equal(t, "Added Netflix", body["message"])
		assert.Len(t, body["expenses"], 1)
		require.Len(t, tl.Store.Expenses(), 1)
		assert.Equal(t, model.ProvenanceVoice, tl.Store.Expenses()[0].Source)
	})

	t.Run("heuristic fallback", func(t *testing.T) {
		srv, tl := newTestServer(t, "")

		resp, body := do(t, http.MethodPost, srv.URL+"/utterances", `{"text":"I spent $50 on dinner"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "fallen_back", body["path"])
		assert.NotEmpty(t, body["reason"])
		require.Len(t, tl.Store.Expenses(), 1)
		assert.Equal(t, "Voice Expense 1", tl.Store.Expenses()[0].Name)
	})

	t.Run("missing text", func(t *testing.T) {
		srv, _ := newTestServer(t, "")
		resp, _ := do(t, http.MethodPost, srv.URL+"/utterances", `{"text":"  "}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestVoiceEndpoint(t *testing.T) {
	srv, tl := newTestServer(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "memo.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/voice", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ExtractionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "fallen_back", body.Path)
	require.Len(t, body.Incomes, 1)
	assert.True(t, body.Incomes[0].Amount.Equal(decimal.NewFromInt(3000)))
	assert.Len(t, tl.Store.Incomes(), 1)

	resp2, state := do(t, http.MethodGet, srv.URL+"/voice/state", "")
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, "idle", state["state"])
	assert.Equal(t, false, state["busy"])

	resp3, canceled := do(t, http.MethodPost, srv.URL+"/voice/cancel", "")
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	assert.Equal(t, false, canceled["canceled"])
}

func TestVoiceEndpoint_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no audio"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/voice", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVoiceEndpoints_NoSession(t *testing.T) {
	tl := testutil.SetupLedger(t, "")
	srv := httptest.NewServer(NewServer(tl.Store, nil, common.DiscardLogger()).Routes())
	t.Cleanup(srv.Close)

	resp, _ := do(t, http.MethodPost, srv.URL+"/utterances", `{"text":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
