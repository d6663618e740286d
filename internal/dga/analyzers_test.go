package dga

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeDPM(t *testing.T) {
	tests := []struct {
		region     string
		faultType  string
		confidence float64
	}{
		{"T1", "低温过热", 0.85},
		{"T2", "中温过热", 0.88},
		{"T3", "高温过热", 0.90},
		{"D1", "低能放电", 0.83},
		{"D2", "高能放电", 0.92},
		{"DP", "混合故障", 0.78},
		{"X9", "未知DPM结果", 0.3},
		{"", "未知DPM结果", 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.region, func(t *testing.T) {
			f := AnalyzeDPM(tt.region)
			assert.Equal(t, tt.faultType, f.FaultType)
			assert.Equal(t, tt.confidence, f.Confidence)
			assert.Equal(t, MethodDPM, f.Method)
			assert.NotEmpty(t, f.Diagnosis)
			assert.NotEmpty(t, f.Recommendation)
		})
	}
}

func TestAnalyzePRPD(t *testing.T) {
	tests := []struct {
		feature    string
		faultType  string
		confidence float64
	}{
		{"symmetric_wide", "绝缘放电", 0.87},
		{"symmetric_narrow", "悬浮放电", 0.89},
		{"single_pole", "尖端放电", 0.83},
		{"asymmetric_wide", "沿面放电", 0.86},
		{"bipolar", "未知放电类型", 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.feature, func(t *testing.T) {
			f := AnalyzePRPD(tt.feature)
			assert.Equal(t, tt.faultType, f.FaultType)
			assert.Equal(t, tt.confidence, f.Confidence)
			assert.NotEmpty(t, f.Diagnosis)
		})
	}
	assert.Contains(t, AnalyzePRPD("bipolar").Diagnosis, "bipolar")
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		faultType string
		want      Severity
		level     int
	}{
		{"电弧放电兼过热", SeverityCritical, 5},
		{"高能放电 (电弧)", SeverityCritical, 5},
		{"高温过热 (>700°C)", SeveritySerious, 4},
		{"油纸混合绝缘过热", SeveritySerious, 4},
		{"悬浮放电", SeveritySerious, 4},
		{"火花放电兼过热", SeverityWarning, 3},
		{"中温过热", SeverityWarning, 3},
		{"低能放电", SeverityWarning, 3},
		{"低温过热", SeverityAttention, 2},
		{"局部放电", SeverityAttention, 2},
		{"未知故障", SeverityAttention, 2},
		{"正常", SeverityNormal, 1},
	}
	for _, tt := range tests {
		t.Run(tt.faultType, func(t *testing.T) {
			got := SeverityFor(tt.faultType)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.level, got.Level())
		})
	}
	assert.Equal(t, 0, Severity("bogus").Level())
}

func TestCheckLimits(t *testing.T) {
	assert.NoError(t, CheckLimits(PresetParams()))

	p := PresetParams()
	p.C2H2 = 1500
	p.CO = -1
	err := CheckLimits(p)
	assert.ErrorContains(t, err, "C2H2_ppm: 1500 exceeds limit 1000")
	assert.ErrorContains(t, err, "CO_ppm: -1 must not be negative")

	var le *LimitError
	assert.ErrorAs(t, err, &le)
}
