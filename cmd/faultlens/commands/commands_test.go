package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/faultlens/internal/config"
	"github.com/moolen/faultlens/internal/dga"
)

const workflowFixture = "../../../internal/workflow/testdata/transformer.json"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseLogLevelFlags(t *testing.T) {
	tests := []struct {
		name        string
		flags       []string
		environ     []string
		wantDefault string
		wantPkgs    map[string]string
		wantErr     string
	}{
		{
			name:        "default only",
			flags:       []string{"debug"},
			wantDefault: "debug",
			wantPkgs:    map[string]string{},
		},
		{
			name:        "env package level",
			flags:       []string{"info"},
			environ:     []string{"LOG_LEVEL_SESSION_STORE=debug", "HOME=/root"},
			wantDefault: "info",
			wantPkgs:    map[string]string{"session.store": "debug"},
		},
		{
			name:        "flag overrides env",
			flags:       []string{"default=error", "session.store=warn"},
			environ:     []string{"LOG_LEVEL_SESSION_STORE=debug"},
			wantDefault: "error",
			wantPkgs:    map[string]string{"session.store": "warn"},
		},
		{
			name:        "no default falls back to warn",
			flags:       []string{"api=debug"},
			wantDefault: "warn",
			wantPkgs:    map[string]string{"api": "debug"},
		},
		{
			name:    "invalid default",
			flags:   []string{"loud"},
			wantErr: "invalid level",
		},
		{
			name:    "invalid package level",
			flags:   []string{"api=loud"},
			wantErr: `invalid log level for package "api"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, pkgs, err := parseLogLevelFlags(tt.flags, tt.environ)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, def)
			assert.Equal(t, tt.wantPkgs, pkgs)
		})
	}
}

func TestConvertEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "config.watcher", convertEnvKeyToPackageName("LOG_LEVEL_CONFIG_WATCHER"))
	assert.Equal(t, "api", convertEnvKeyToPackageName("LOG_LEVEL_API"))
}

func TestDiagnose_PresetJSON(t *testing.T) {
	out, err := execute(t, "", "diagnose", "--preset", "-o", "json")
	require.NoError(t, err)

	var res dga.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "火花放电", res.FaultType)
	assert.Equal(t, "101", res.ThreeRatioCode)
	assert.Len(t, res.Findings, 3)
}

func TestDiagnose_ParamsFileText(t *testing.T) {
	params := writeFile(t, "params.yaml", "transformer_id: T-07\nH2_ppm: 150\nCH4_ppm: 60\nC2H6_ppm: 20\nC2H4_ppm: 50\nC2H2_ppm: 150\n")

	out, err := execute(t, "", "diagnose", "--params", params)
	require.NoError(t, err)
	assert.Contains(t, out, "T-07: 火花放电")
	assert.Contains(t, out, "Three-ratio code: 101")
}

func TestDiagnose_Model(t *testing.T) {
	out, err := execute(t, "", "diagnose", "--preset", "--model", dga.ModelGasAnalysis, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "method: gas_analysis")

	_, err = execute(t, "", "diagnose", "--preset", "--model", "nope")
	require.ErrorIs(t, err, dga.ErrUnknownModel)
}

func TestDiagnose_Errors(t *testing.T) {
	overLimit := writeFile(t, "params.json", `{"C2H2_ppm": 5000}`)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no input", []string{"diagnose"}, "one of --params or --preset is required"},
		{"bad output", []string{"diagnose", "--preset", "-o", "xml"}, `unsupported output format "xml"`},
		{"over limit", []string{"diagnose", "--params", overLimit}, "C2H2_ppm: 5000 exceeds limit 1000"},
		{"missing file", []string{"diagnose", "--params", filepath.Join(t.TempDir(), "missing.json")}, "read "},
		{"both inputs", []string{"diagnose", "--preset", "--params", overLimit}, "none of the others can be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiagnoseBatch(t *testing.T) {
	file := writeFile(t, "batch.json", `[
		{"transformer_id": "A", "H2_ppm": 150, "CH4_ppm": 60, "C2H6_ppm": 20, "C2H4_ppm": 50, "C2H2_ppm": 150},
		{"transformer_id": "B", "H2_ppm": 10, "CH4_ppm": 20, "C2H6_ppm": 2, "C2H4_ppm": 10, "C2H2_ppm": 40}
	]`)

	out, err := execute(t, "", "diagnose", "batch", "--file", file, "-o", "json")
	require.NoError(t, err)

	var results []dga.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].TransformerID)
	assert.Equal(t, "B", results[1].TransformerID)
}

func TestDiagnoseBatch_ReportsFailingIndex(t *testing.T) {
	file := writeFile(t, "batch.json", `[{"H2_ppm": 1}, {"CO_ppm": -1}]`)

	_, err := execute(t, "", "diagnose", "batch", "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "params[1]")
}

func TestWorkflowParse_JSON(t *testing.T) {
	params := writeFile(t, "values.json", `{"C2H2_ppm": 150, "C2H4_ppm": "50", "note": "ignored"}`)

	out, err := execute(t, "", "workflow", "parse", workflowFixture, "--params", params, "--conclusion", "高温过热", "-o", "json")
	require.NoError(t, err)

	var view struct {
		LogicGates []struct {
			State string `json:"state"`
		} `json:"logic_gates"`
		FaultTree struct {
			Name string `json:"name"`
		} `json:"fault_tree"`
		Path []string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.LogicGates, 2)
	assert.Equal(t, "true", view.LogicGates[0].State)
	assert.Equal(t, "false", view.LogicGates[1].State)
	assert.Equal(t, "Webhook", view.FaultTree.Name)
	assert.Equal(t, []string{"3f1c2a9e-0001", "3f1c2a9e-0002", "3f1c2a9e-0003", "3f1c2a9e-0005"}, view.Path)
}

func TestWorkflowParse_Text(t *testing.T) {
	out, err := execute(t, "", "workflow", "parse", workflowFixture, "--conclusion", "高温过热")
	require.NoError(t, err)

	assert.Contains(t, out, "Fault tree")
	assert.Contains(t, out, "Webhook")
	assert.Contains(t, out, "Logic gates (2)")
	assert.Contains(t, out, "Webhook → 是否乙炔超标 → 是否乙烯${C2H4_ppm} > 150 → 高温过热")
}

func TestWorkflowParse_NoRoot(t *testing.T) {
	file := writeFile(t, "loop.json", `{"nodes":[{"id":"a","name":"A"},{"id":"b","name":"B"}],
		"connections":{"a":{"main":[[{"node":"b"}]]},"b":{"main":[[{"node":"a"}]]}}}`)

	_, err := execute(t, "", "workflow", "parse", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workflow root node found")
}

func TestWorkflowParse_MaxTreeNodes(t *testing.T) {
	file := writeFile(t, "chain.json", `{"nodes":[{"id":"a","name":"A"},{"id":"b","name":"B"},{"id":"c","name":"C"}],
		"connections":{"a":{"main":[[{"node":"b"}]]},"b":{"main":[[{"node":"c"}]]}}}`)

	_, err := execute(t, "", "workflow", "parse", file, "--max-tree-nodes", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fault tree too large")

	_, err = execute(t, "", "workflow", "parse", file, "--max-tree-nodes", "3")
	assert.NoError(t, err)
}

func TestLoadValues(t *testing.T) {
	path := writeFile(t, "values.yaml", "C2H2_ppm: 150\nC2H4_ppm: \"50.5\"\nlabel: x\nratio: 0.5\n")

	values, err := loadValues(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"C2H2_ppm": 150, "C2H4_ppm": 50.5, "ratio": 0.5}, map[string]float64(values))
}

const flatTree = "一级节点\t二级节点\t三级节点\t四级节点\t备注\t备注\t处理建议\n" +
	"过热故障\t裸金属过热\t分接开关\t接触不良\t\t\t测量直流电阻\n" +
	"放电故障\t悬浮放电\t铁芯\t多点接地\t\t\t检查接地\n"

func TestTreeParse(t *testing.T) {
	file := writeFile(t, "tree.tsv", flatTree)

	out, err := execute(t, "", "tree", "parse", file, "--search", "接地", "--conclusion", "多点接地", "-o", "json")
	require.NoError(t, err)

	var view struct {
		Roots []struct {
			Name string `json:"name"`
		} `json:"roots"`
		Matches []struct {
			ID string `json:"id"`
		} `json:"matches"`
		Highlight []string `json:"highlight"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Roots, 2)
	assert.Equal(t, "过热故障", view.Roots[0].Name)
	require.Len(t, view.Matches, 1)
	assert.Equal(t, "L4-2", view.Matches[0].ID)
	assert.Equal(t, []string{"L1-2", "L2-2", "L3-2", "L4-2"}, view.Highlight)
}

func TestTreeParse_Text(t *testing.T) {
	file := writeFile(t, "tree.tsv", flatTree)

	out, err := execute(t, "", "tree", "parse", file, "--conclusion", "接触不良")
	require.NoError(t, err)
	assert.Contains(t, out, "Fault tree (8 nodes)")
	assert.Contains(t, out, "接触不良")
	assert.Contains(t, out, "建议: 测量直流电阻")
}

func TestTreePreset(t *testing.T) {
	out, err := execute(t, "", "tree", "preset")
	require.NoError(t, err)
	assert.Equal(t, "gas_analysis\npd_analysis\n", out)

	out, err = execute(t, "", "tree", "preset", "gas_analysis")
	require.NoError(t, err)
	assert.Contains(t, out, "变压器油中溶解气体与放电特征故障树")

	_, err = execute(t, "", "tree", "preset", "moisture_analysis")
	require.Error(t, err)
}

func TestReportParse_Stdin(t *testing.T) {
	report := "总体严重性：危急\n主要故障类型：电弧放电\n1. **立即停运**\n2. **油样复测**\n"

	out, err := execute(t, report, "report", "parse", "-", "-o", "json")
	require.NoError(t, err)

	var view struct {
		Severity        string   `json:"severity"`
		FaultType       string   `json:"fault_type"`
		Recommendations []string `json:"recommendations"`
		Summary         string   `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "危急", view.Severity)
	assert.Equal(t, "电弧放电", view.FaultType)
	assert.Equal(t, []string{"立即停运", "油样复测"}, view.Recommendations)
	assert.Equal(t, "严重性: 危急 | 故障类型: 电弧放电 | 主要建议: 立即停运, 油样复测", view.Summary)
}

func TestReportParse_Unstructured(t *testing.T) {
	file := writeFile(t, "report.txt", "nothing to see here")

	out, err := execute(t, "", "report", "parse", file)
	require.NoError(t, err)
	assert.Contains(t, out, "No structured fields found")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faultlens.yaml")

	out, err := execute(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	_, err = execute(t, "", "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "", "config", "init", "--force", path)
	require.NoError(t, err)

	out, err = execute(t, "", "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := writeFile(t, "bad.yaml", "schema_version: v9\n")
	_, err = execute(t, "", "config", "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema_version")
}

func TestRunServe_MissingConfig(t *testing.T) {
	err := runServe(context.Background(), &serveOptions{
		configPath:      filepath.Join(t.TempDir(), "missing.yaml"),
		shutdownTimeout: time.Second,
	}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRunServe_StartsAndStops(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = freePort(t)
	path := filepath.Join(t.TempDir(), "faultlens.yaml")
	require.NoError(t, config.Write(path, cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, &serveOptions{
			configPath:      path,
			watchConfig:     true,
			shutdownTimeout: 5 * time.Second,
		}, true)
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
