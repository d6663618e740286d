package dga

import (
	"fmt"
	"strings"
	"time"
)

const (
	fallbackFaultType      = "未知故障"
	fallbackDiagnosis      = "诊断信息不足"
	fallbackRecommendation = "建议进一步检测"

	// Below this mean confidence the three methods are not trusted together.
	minConsistentConfidence = 0.6
)

// DecisionMaker fuses per-method findings into one result.
type DecisionMaker struct {
	now func() time.Time
}

// NewDecisionMaker returns a DecisionMaker stamping results with time.Now.
func NewDecisionMaker() *DecisionMaker {
	return &DecisionMaker{now: time.Now}
}

// Fuse computes the weighted-average confidence of items and takes the text
// of the item with the highest confidence*weight. On ties the earlier item
// wins. With no items the result is the fallback with confidence 0.
func (d *DecisionMaker) Fuse(items []Weighted) Result {
	now := time.Now
	if d != nil && d.now != nil {
		now = d.now
	}

	res := Result{Timestamp: now().UTC()}
	if len(items) == 0 {
		res.FaultType = fallbackFaultType
		res.Diagnosis = fallbackDiagnosis
		res.Recommendation = fallbackRecommendation
		res.Severity = SeverityFor(res.FaultType)
		res.SeverityLevel = res.Severity.Level()
		return res
	}

	var totalWeight, weighted float64
	primary := 0
	best := items[0].Finding.Confidence * items[0].Weight
	for i, it := range items {
		totalWeight += it.Weight
		score := it.Finding.Confidence * it.Weight
		weighted += score
		if i > 0 && score > best {
			best = score
			primary = i
		}
	}

	var confidence float64
	if totalWeight > 0 {
		confidence = weighted / totalWeight
	}
	res.Confidence = clamp01(confidence)

	p := items[primary].Finding
	res.PrimaryMethod = p.Method
	res.Category = p.Category
	res.FaultType = orDefault(p.FaultType, fallbackFaultType)
	res.Diagnosis = orDefault(p.Diagnosis, fallbackDiagnosis)
	res.Recommendation = orDefault(p.Recommendation, fallbackRecommendation)
	res.ThreeRatioCode = p.ThreeRatioCode
	if len(p.Path) > 0 {
		res.Path = append([]string(nil), p.Path...)
	}
	res.Severity = SeverityFor(res.FaultType)
	res.SeverityLevel = res.Severity.Level()

	res.Findings = make([]Finding, len(items))
	for i, it := range items {
		res.Findings[i] = it.Finding
	}
	return res
}

// ValidateConsistency checks whether the three-ratio, DPM and PRPD findings
// agree. More than two distinct fault types, or a mean confidence below 0.6,
// marks them inconsistent. Every triggered reason is reported.
func ValidateConsistency(threeRatio, dpm, prpd Finding) Consistency {
	seen := make(map[string]struct{}, 3)
	var types []string
	for _, f := range []Finding{threeRatio, dpm, prpd} {
		if f.FaultType == "" {
			continue
		}
		if _, ok := seen[f.FaultType]; ok {
			continue
		}
		seen[f.FaultType] = struct{}{}
		types = append(types, f.FaultType)
	}

	c := Consistency{Consistent: true}
	if len(types) > 2 {
		c.Consistent = false
		c.Conflicts = append(c.Conflicts, fmt.Sprintf("多种方法诊断结果差异较大：%s", strings.Join(types, ", ")))
	}

	mean := (threeRatio.Confidence + dpm.Confidence + prpd.Confidence) / 3
	if mean < minConsistentConfidence {
		c.Consistent = false
		c.Conflicts = append(c.Conflicts, "各方法诊断置信度普遍偏低")
	}
	return c
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
