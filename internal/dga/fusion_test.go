package dga

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func testDecisionMaker() *DecisionMaker {
	return &DecisionMaker{now: func() time.Time { return fixedNow }}
}

func TestFuse_SinglePairKeepsFields(t *testing.T) {
	f := DiagnoseByCode("022")
	res := testDecisionMaker().Fuse([]Weighted{{Finding: f, Weight: 0.4}})

	assert.Equal(t, f.FaultType, res.FaultType)
	assert.Equal(t, f.Diagnosis, res.Diagnosis)
	assert.Equal(t, f.Recommendation, res.Recommendation)
	assert.Equal(t, "022", res.ThreeRatioCode)
	assert.InDelta(t, f.Confidence, res.Confidence, 1e-9)
	assert.Equal(t, fixedNow, res.Timestamp)
	assert.Equal(t, SeveritySerious, res.Severity)
	assert.Equal(t, 4, res.SeverityLevel)
}

func TestFuse_ConfidenceClipped(t *testing.T) {
	f := Finding{FaultType: "x", Diagnosis: "d", Recommendation: "r", Confidence: 1.7}
	res := testDecisionMaker().Fuse([]Weighted{{Finding: f, Weight: 2}})
	assert.Equal(t, 1.0, res.Confidence)

	f.Confidence = -0.2
	res = testDecisionMaker().Fuse([]Weighted{{Finding: f, Weight: 2}})
	assert.Equal(t, 0.0, res.Confidence)
}

func TestFuse_WeightedAverageAndPrimary(t *testing.T) {
	items := []Weighted{
		{Finding: DiagnoseByCode("101"), Weight: 0.4}, // 0.82*0.4 = 0.328
		{Finding: AnalyzeDPM("D2"), Weight: 0.35},     // 0.92*0.35 = 0.322
		{Finding: AnalyzePRPD("symmetric_wide"), Weight: 0.25},
	}
	res := testDecisionMaker().Fuse(items)

	assert.Equal(t, "火花放电", res.FaultType)
	assert.Equal(t, MethodThreeRatio, res.PrimaryMethod)
	assert.InDelta(t, 0.8675, res.Confidence, 1e-9)
	require.Len(t, res.Findings, 3)
	assert.Equal(t, MethodPRPD, res.Findings[2].Method)
}

func TestFuse_TieKeepsFirst(t *testing.T) {
	a := Finding{FaultType: "a", Confidence: 0.5}
	b := Finding{FaultType: "b", Confidence: 0.5}
	res := testDecisionMaker().Fuse([]Weighted{{Finding: a, Weight: 1}, {Finding: b, Weight: 1}})
	assert.Equal(t, "a", res.FaultType)
}

func TestFuse_EmptyTextFallsBack(t *testing.T) {
	res := testDecisionMaker().Fuse([]Weighted{{Finding: Finding{Confidence: 0.9}, Weight: 1}})
	assert.Equal(t, "未知故障", res.FaultType)
	assert.Equal(t, "诊断信息不足", res.Diagnosis)
	assert.Equal(t, "建议进一步检测", res.Recommendation)
}

func TestFuse_EmptyInput(t *testing.T) {
	res := testDecisionMaker().Fuse(nil)
	assert.Equal(t, 0.0, res.Confidence)
	assert.NotEmpty(t, res.FaultType)
	assert.NotEmpty(t, res.Diagnosis)
	assert.NotEmpty(t, res.Recommendation)
	assert.Equal(t, SeverityAttention, res.Severity)
}

func TestFuse_ZeroTotalWeight(t *testing.T) {
	f := AnalyzeDPM("T3")
	res := testDecisionMaker().Fuse([]Weighted{{Finding: f, Weight: 0}})
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, f.FaultType, res.FaultType)
}

func TestFuse_NilDecisionMakerUsesWallClock(t *testing.T) {
	var d *DecisionMaker
	before := time.Now().UTC()
	res := d.Fuse([]Weighted{{Finding: AnalyzeDPM("T1"), Weight: 1}})
	assert.False(t, res.Timestamp.Before(before.Add(-time.Second)))
}

func TestValidateConsistency(t *testing.T) {
	tests := []struct {
		name       string
		threeRatio Finding
		dpm        Finding
		prpd       Finding
		consistent bool
		conflicts  int
	}{
		{
			name:       "two types high confidence",
			threeRatio: Finding{FaultType: "高温过热", Confidence: 0.9},
			dpm:        Finding{FaultType: "高温过热", Confidence: 0.9},
			prpd:       Finding{FaultType: "绝缘放电", Confidence: 0.87},
			consistent: true,
		},
		{
			name:       "three distinct types",
			threeRatio: DiagnoseByCode("101"),
			dpm:        AnalyzeDPM("D2"),
			prpd:       AnalyzePRPD("symmetric_wide"),
			consistent: false,
			conflicts:  1,
		},
		{
			name:       "same type low confidence",
			threeRatio: Finding{FaultType: "a", Confidence: 0.3},
			dpm:        Finding{FaultType: "a", Confidence: 0.3},
			prpd:       Finding{FaultType: "a", Confidence: 0.4},
			consistent: false,
			conflicts:  1,
		},
		{
			name:       "both checks trigger",
			threeRatio: DiagnoseByCode("999"),
			dpm:        AnalyzeDPM("ZZ"),
			prpd:       AnalyzePRPD("unknown"),
			consistent: false,
			conflicts:  2,
		},
		{
			name:       "empty fault types ignored",
			threeRatio: Finding{Confidence: 0.9},
			dpm:        Finding{Confidence: 0.9},
			prpd:       Finding{FaultType: "a", Confidence: 0.9},
			consistent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ValidateConsistency(tt.threeRatio, tt.dpm, tt.prpd)
			assert.Equal(t, tt.consistent, c.Consistent)
			assert.Len(t, c.Conflicts, tt.conflicts)
		})
	}
}

func TestValidateConsistency_ConflictMessageListsTypes(t *testing.T) {
	c := ValidateConsistency(DiagnoseByCode("101"), AnalyzeDPM("D2"), AnalyzePRPD("symmetric_wide"))
	require.Len(t, c.Conflicts, 1)
	assert.Equal(t, "多种方法诊断结果差异较大：火花放电, 高能放电, 绝缘放电", c.Conflicts[0])
}
