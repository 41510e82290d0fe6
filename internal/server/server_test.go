package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfshield/claims-engine/internal/config"
	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/pipeline"
	"github.com/gulfshield/claims-engine/internal/rules"
	"github.com/gulfshield/claims-engine/internal/store"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

// oracleStub serves canned completions for POST /api/generate.
func oracleStub(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Write([]byte(`{"models":[]}`))
			return
		}
		body, err := json.Marshal(map[string]any{
			"model":    "qwen2.5:14b",
			"response": response,
			"done":     true,
		})
		require.NoError(t, err)
		w.Write(body)
	}))
}

func writeRuleFile(t *testing.T, dir string, mod model.Module, threshold *float64) string {
	t.Helper()

	doc := map[string]any{
		"main_prompt":             "Decide for party {party_index}, liability {liability}: {accident_description}\n{rejection_conditions}\n{recovery_conditions}\n{data}",
		"compact_prompt_template": "Party {party_index} liability {liability}: {accident_description}",
		"rejection_conditions": []map[string]any{
			{"id": "expired_license", "description": "License expired", "enabled": true},
		},
		"recovery_conditions": []map[string]any{
			{"id": "impairment", "description": "Impairment confirmed", "enabled": true},
		},
	}
	if threshold != nil {
		doc["liability_subrogation_threshold"] = *threshold
	}

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, string(mod)+".rules.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

type serverOpts struct {
	oracleResponse string
	cfg            *config.Config
	store          store.Store
}

func newTestServer(t *testing.T, opts serverOpts) *httptest.Server {
	t.Helper()

	if opts.cfg == nil {
		opts.cfg = &config.Config{}
	}
	opts.cfg.Oracle = config.OracleConfig{
		DecisionModel:    "qwen2.5:14b",
		TranslationModel: "llama3.2:latest",
		MaxAttempts:      2,
		BackoffMillis:    1,
		RequestsPerSec:   1000,
		MaxConcurrent:    4,
	}

	oracle := oracleStub(t, opts.oracleResponse)
	t.Cleanup(oracle.Close)
	client := ollama.NewClient(ollama.WithBaseURL(oracle.URL))

	dir := t.TempDir()
	threshold := 100.0
	tpRules, err := rules.Load(model.ModuleTP, writeRuleFile(t, dir, model.ModuleTP, nil))
	require.NoError(t, err)
	coRules, err := rules.Load(model.ModuleCO, writeRuleFile(t, dir, model.ModuleCO, &threshold))
	require.NoError(t, err)

	ruleSets := map[model.Module]*rules.ModuleConfig{
		model.ModuleTP: tpRules,
		model.ModuleCO: coRules,
	}
	processors := map[model.Module]*pipeline.Processor{
		model.ModuleTP: pipeline.NewProcessor(tpRules, client, opts.cfg, opts.store),
		model.ModuleCO: pipeline.NewProcessor(coRules, client, opts.cfg, opts.store),
	}

	srv := httptest.NewServer(New(opts.cfg, processors, ruleSets, opts.store, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

const jsonClaim = `{
  "case_number": "CO-1",
  "accident_description": "Side impact while changing lanes",
  "parties": [{"id": "P1", "liability": 40}]
}`

const acceptedJSON = `{"outcome":"ACCEPTED","rationale":"routine","liability":40}`

func TestProcessEndpointJSON(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	resp, err := http.Post(srv.URL+"/api/co/process", "application/json", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var report model.DecisionReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, model.ModuleCO, report.Module)
	require.Len(t, report.Parties, 1)
	// CO threshold 100, liability 40: upgraded.
	assert.Equal(t, model.OutcomeAcceptedWithSubrogation, report.Parties[0].Outcome)
}

func TestProcessEndpointXMLRoundTrip(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	xmlClaim := `<Claim>
  <CaseNumber>CO-2</CaseNumber>
  <AccidentDescription>Side impact</AccidentDescription>
  <Parties><Party><ID>P1</ID><Liability>40</Liability></Party></Parties>
</Claim>`

	resp, err := http.Post(srv.URL+"/api/co/process", "application/xml", strings.NewReader(xmlClaim))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<Outcome>ACCEPTED_WITH_SUBROGATION</Outcome>")
}

func TestProcessEndpointAutoFormatBOM(t *testing.T) {
	// No Content-Type: the reply format follows the sniffed payload format,
	// and a UTF-8 BOM must not push an XML claim into a JSON reply.
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	xmlClaim := "\xef\xbb\xbf<Claim>" +
		"<CaseNumber>CO-3</CaseNumber>" +
		"<AccidentDescription>Rear-ended at a red light</AccidentDescription>" +
		"<Parties><Party><ID>P1</ID><Liability>40</Liability></Party></Parties>" +
		"</Claim>"

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/co/process", strings.NewReader(xmlClaim))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<Outcome>ACCEPTED_WITH_SUBROGATION</Outcome>")
}

func TestProcessEndpointValidationError(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	bad := `{"case_number":"C1","accident_description":"","parties":[{"id":"P1","liability":40}]}`
	resp, err := http.Post(srv.URL+"/api/tp/process", "application/json", strings.NewReader(bad))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProcessEndpointUnusableDecision(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: "no json in this response"})

	resp, err := http.Post(srv.URL+"/api/tp/process", "application/json", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestUnknownModule(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	resp, err := http.Post(srv.URL+"/api/life/process", "application/json", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBasicAuthPerModule(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.COAuth = config.BasicAuth{Username: "co-user", Password: "co-pass"}
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON, cfg: cfg})

	// CO without credentials is rejected.
	resp, err := http.Post(srv.URL+"/api/co/process", "application/json", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// CO with the right credentials passes.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/co/process", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	req.SetBasicAuth("co-user", "co-pass")
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// TP has no credentials configured and stays open.
	resp, err = http.Post(srv.URL+"/api/tp/process", "application/json", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPromptsEndpoint(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	resp, err := http.Get(srv.URL + "/api/co/config/prompts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "co", body["module"])
	assert.NotEmpty(t, body["main_prompt"])
	assert.Equal(t, 100.0, body["subrogation_threshold"])
	assert.Equal(t, false, body["translation_enabled"])
}

func TestDecisionTrailEndpoints(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON, store: st})

	resp, err := http.Post(srv.URL+"/api/co/process", "application/json", strings.NewReader(jsonClaim))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/co/decisions?case_number=CO-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Decisions []model.DecisionReport `json:"decisions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Decisions, 1)

	single, err := http.Get(srv.URL + "/api/co/decisions/" + list.Decisions[0].ID)
	require.NoError(t, err)
	defer single.Body.Close()
	assert.Equal(t, http.StatusOK, single.StatusCode)

	stats, err := http.Get(srv.URL + "/api/co/stats")
	require.NoError(t, err)
	defer stats.Body.Close()
	require.Equal(t, http.StatusOK, stats.StatusCode)

	var snap struct {
		Decisions int            `json:"decisions"`
		ByOutcome map[string]int `json:"by_outcome"`
	}
	require.NoError(t, json.NewDecoder(stats.Body).Decode(&snap))
	assert.Equal(t, 1, snap.Decisions)
	assert.Equal(t, 1, snap.ByOutcome["ACCEPTED_WITH_SUBROGATION"])
}

func TestTrailDisabled(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	resp, err := http.Get(srv.URL + "/api/co/decisions")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, serverOpts{oracleResponse: acceptedJSON})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	modules, ok := body["modules"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "loaded", modules["tp"])
	assert.Equal(t, "loaded", modules["co"])
}
