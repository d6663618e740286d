package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultlens/internal/api"
	"github.com/moolen/faultlens/internal/api/handlers"
	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/faulttree"
	"github.com/moolen/faultlens/internal/metrics"
	"github.com/moolen/faultlens/internal/session"
	"github.com/moolen/faultlens/internal/tracing"
)

const sampleWorkflow = `{
  "nodes": [
    {"id": "n1", "name": "Webhook", "type": "n8n-nodes-base.webhook"},
    {"id": "n2", "name": "是否乙炔超标？", "type": "n8n-nodes-base.if",
     "parameters": {"conditions": {"combinator": "and", "conditions": [
       {"leftValue": "{{ $json.C2H2_ppm }}", "rightValue": 30, "operator": {"operation": "larger"}}]}}},
    {"id": "n3", "name": "电弧放电", "type": "n8n-nodes-base.set"}
  ],
  "connections": {
    "Webhook": {"main": [[{"node": "是否乙炔超标？", "type": "main", "index": 0}]]},
    "是否乙炔超标？": {"main": [[{"node": "电弧放电", "type": "main", "index": 0}]]}
  }
}`

type testEnv struct {
	server  *Server
	metrics *metrics.Metrics
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	store, err := session.NewStore(8, m.Sessions)
	require.NoError(t, err)
	catalog, err := faulttree.LoadCatalog()
	require.NoError(t, err)
	tp, err := tracing.NewProvider(tracing.Config{}, "test")
	require.NoError(t, err)

	engine := dga.NewEngine(dga.EngineConfig{Thresholds: dga.DefaultThresholds(), Weights: dga.DefaultWeights()}, 2)
	s := New(Config{Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second},
		handlers.Deps{Engine: engine, Catalog: catalog, Sessions: store, Metrics: m}, tp, reg)
	return &testEnv{server: s, metrics: m, handler: s.Handler()}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(method, target, r))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code api.ErrorCode) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, string(code), decode[api.ErrorResponse](t, rec).Error)
}

func TestDiagnose(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/diagnose", dga.PresetParams())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dga.Result](t, rec)
	assert.Equal(t, "火花放电", res.FaultType)
	assert.Equal(t, "101", res.ThreeRatioCode)
	require.NotNil(t, res.Consistency)
	assert.False(t, res.Consistency.Consistent)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.DiagnosesTotal.WithLabelValues("three_ratio")))
}

func TestDiagnose_Rejections(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		body   interface{}
		status int
		code   api.ErrorCode
	}{
		{name: "over limit", method: http.MethodPost, body: dga.Params{C2H2: 5000}, status: http.StatusUnprocessableEntity, code: api.ErrorCodeLimitExceeded},
		{name: "negative", method: http.MethodPost, body: dga.Params{H2: -1}, status: http.StatusUnprocessableEntity, code: api.ErrorCodeLimitExceeded},
		{name: "unknown field", method: http.MethodPost, body: `{"C2H2": 10}`, status: http.StatusBadRequest, code: api.ErrorCodeInvalidRequest},
		{name: "empty body", method: http.MethodPost, body: nil, status: http.StatusBadRequest, code: api.ErrorCodeInvalidRequest},
		{name: "wrong method", method: http.MethodGet, body: nil, status: http.StatusMethodNotAllowed, code: api.ErrorCodeMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, tt.method, "/v1/diagnose", tt.body), tt.status, tt.code)
		})
	}
}

func TestDiagnoseBatch(t *testing.T) {
	env := newTestEnv(t)

	gasOnly := dga.Params{C2H2: 40, C2H4: 10, CH4: 20, H2: 10, C2H6: 2}
	rec := env.do(t, http.MethodPost, "/v1/diagnose/batch", handlers.BatchRequest{Params: []dga.Params{dga.PresetParams(), gasOnly}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[handlers.BatchResponse](t, rec)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "火花放电", resp.Results[0].FaultType)
	assert.Equal(t, "未知故障", resp.Results[1].FaultType)

	assertError(t, env.do(t, http.MethodPost, "/v1/diagnose/batch", handlers.BatchRequest{}),
		http.StatusBadRequest, api.ErrorCodeInvalidRequest)

	rec = env.do(t, http.MethodPost, "/v1/diagnose/batch", handlers.BatchRequest{Params: []dga.Params{gasOnly, {CO: 9000}}})
	assertError(t, rec, http.StatusUnprocessableEntity, api.ErrorCodeLimitExceeded)
	assert.Contains(t, rec.Body.String(), "params[1]")
}

func TestDiagnoseConsistency(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/diagnose/consistency", dga.PresetParams())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[handlers.ConsistencyResponse](t, rec)
	assert.Equal(t, dga.MethodDPM, resp.DPM.Method)
	assert.False(t, resp.Consistency.Consistent)
	assert.NotEmpty(t, resp.Consistency.Conflicts)

	assertError(t, env.do(t, http.MethodPost, "/v1/diagnose/consistency", dga.Params{H2: 10}),
		http.StatusBadRequest, api.ErrorCodeInvalidRequest)
}

func TestModels(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Models []handlers.ModelInfo `json:"models"`
	}](t, rec)
	require.Len(t, list.Models, 3)
	assert.Equal(t, dga.ModelGasAnalysis, list.Models[0].ID)
	assert.True(t, list.Models[0].HasTree)
	assert.True(t, list.Models[2].Disabled)
	assert.False(t, list.Models[2].HasTree)

	rec = env.do(t, http.MethodPost, "/v1/models/gas_analysis/diagnose", dga.PresetParams())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f := decode[dga.Finding](t, rec)
	assert.Equal(t, dga.CategoryArcDischarge, f.Category)
	assert.Equal(t, "101", f.ThreeRatioCode)

	assertError(t, env.do(t, http.MethodPost, "/v1/models/nope/diagnose", dga.PresetParams()), http.StatusNotFound, api.ErrorCodeNotFound)
	assertError(t, env.do(t, http.MethodPost, "/v1/models/moisture_analysis/diagnose", dga.PresetParams()), http.StatusConflict, api.ErrorCodeConflict)

	rec = env.do(t, http.MethodGet, "/v1/models/pd_analysis/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	preset := decode[faulttree.Preset](t, rec)
	assert.Equal(t, dga.ModelPDAnalysis, preset.ModelID)
	assert.NotEmpty(t, preset.Tree.Leaves())

	assertError(t, env.do(t, http.MethodGet, "/v1/models/moisture_analysis/tree", nil), http.StatusNotFound, api.ErrorCodeNotFound)
}

func TestWorkflowSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/workflows", sampleWorkflow)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[handlers.CreateWorkflowResponse](t, rec)
	require.NotEmpty(t, created.SessionID)
	require.Len(t, created.Workflow.LogicGates, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.WorkflowParsesTotal.WithLabelValues(metrics.ParseOK)))

	base := "/v1/workflows/" + created.SessionID

	rec = env.do(t, http.MethodPost, base+"/evaluate", `{"C2H2_ppm": 150, "C2H4_ppm": "50", "dpm_result": "D2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[session.Snapshot](t, rec)
	assert.Equal(t, "true", string(snap.LogicGates[0].State))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.GateEvaluationsTotal.WithLabelValues("true")))

	rec = env.do(t, http.MethodGet, base+"/path?conclusion="+"%E7%94%B5%E5%BC%A7%E6%94%BE%E7%94%B5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"n1", "n2", "n3"}, decode[handlers.PathResponse](t, rec).Path)

	rec = env.do(t, http.MethodGet, base+"/path?conclusion=none", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{}, decode[handlers.PathResponse](t, rec).Path)

	assertError(t, env.do(t, http.MethodGet, base+"/path", nil), http.StatusBadRequest, api.ErrorCodeInvalidRequest)

	rec = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.SessionID, decode[session.Snapshot](t, rec).ID)

	rec = env.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertError(t, env.do(t, http.MethodGet, base, nil), http.StatusNotFound, api.ErrorCodeNotFound)
	assertError(t, env.do(t, http.MethodPost, base+"/evaluate", `{}`), http.StatusNotFound, api.ErrorCodeNotFound)
	assertError(t, env.do(t, http.MethodPut, base, nil), http.StatusMethodNotAllowed, api.ErrorCodeMethodNotAllowed)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.Sessions))
}

func TestWorkflowCreate_Invalid(t *testing.T) {
	env := newTestEnv(t)

	assertError(t, env.do(t, http.MethodPost, "/v1/workflows", `{"nodes": [`), http.StatusBadRequest, api.ErrorCodeInvalidRequest)

	cyclic := `{"nodes": [{"id": "a", "name": "A", "type": "x"}, {"id": "b", "name": "B", "type": "x"}],
	  "connections": {"A": {"main": [[{"node": "B"}]]}, "B": {"main": [[{"node": "A"}]]}}}`
	assertError(t, env.do(t, http.MethodPost, "/v1/workflows", cyclic), http.StatusUnprocessableEntity, api.ErrorCodeInvalidRequest)

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.WorkflowParsesTotal.WithLabelValues(metrics.ParseError)))
}

// diamondWorkflow returns an export whose branches rejoin layers times, so
// the expanded tree doubles with every layer.
func diamondWorkflow(layers int) string {
	nodes := []string{`{"id": "root", "name": "Webhook", "type": "n8n-nodes-base.webhook"}`}
	var conns []string
	prev := "Webhook"
	for i := 0; i < layers; i++ {
		a, b, join := fmt.Sprintf("A%d", i), fmt.Sprintf("B%d", i), fmt.Sprintf("J%d", i)
		for _, name := range []string{a, b, join} {
			nodes = append(nodes, fmt.Sprintf(`{"id": %q, "name": %q, "type": "n8n-nodes-base.set"}`, strings.ToLower(name), name))
		}
		conns = append(conns,
			fmt.Sprintf(`%q: {"main": [[{"node": %q}, {"node": %q}]]}`, prev, a, b),
			fmt.Sprintf(`%q: {"main": [[{"node": %q}]]}`, a, join),
			fmt.Sprintf(`%q: {"main": [[{"node": %q}]]}`, b, join))
		prev = join
	}
	return fmt.Sprintf(`{"nodes": [%s], "connections": {%s}}`, strings.Join(nodes, ","), strings.Join(conns, ","))
}

func TestWorkflowCreate_TreeTooLarge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/workflows", diamondWorkflow(20))
	assertError(t, rec, http.StatusUnprocessableEntity, api.ErrorCodeInvalidRequest)
	assert.Contains(t, rec.Body.String(), "fault tree too large")
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.Sessions))

	rec = env.do(t, http.MethodPost, "/v1/workflows", diamondWorkflow(4))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestParseEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/reports/parse", "总体严重性：危急\n主要故障类型：电弧放电\n1. **立即停运与隔离**\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[handlers.ReportResponse](t, rec)
	assert.Equal(t, 5, report.SeverityLevel)
	assert.Equal(t, "严重性: 危急 | 故障类型: 电弧放电 | 主要建议: 立即停运与隔离", report.Summary)

	table := "过热故障\t裸金属过热\t分接开关\t接触不良\t\t\t测量直流电阻\n"
	rec = env.do(t, http.MethodPost, "/v1/faulttree/parse?q=%E5%88%86%E6%8E%A5&conclusion=%E6%8E%A5%E8%A7%A6", table)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tree := decode[handlers.FaultTreeResponse](t, rec)
	assert.Len(t, tree.Tree.Nodes, 4)
	require.Len(t, tree.Matches, 1)
	assert.Equal(t, "分接开关", tree.Matches[0].Name)
	assert.Equal(t, []string{"L1-0", "L2-0", "L3-0", "L4-0"}, tree.Highlight)

	assertError(t, env.do(t, http.MethodPost, "/v1/reports/parse", nil), http.StatusBadRequest, api.ErrorCodeInvalidRequest)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, rec)["status"])

	env.do(t, http.MethodPost, "/v1/diagnose", dga.PresetParams())
	rec = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `faultlens_diagnoses_total{method="three_ratio"} 1`)
	assert.Contains(t, rec.Body.String(), "faultlens_sessions 0")
}

func TestServer_StartStop(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.server.Start(context.Background()))
	addr := env.server.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.server.Stop(ctx))
	assert.Equal(t, "API Server", env.server.Name())
}
