// Package report extracts structured fields from the plain-text diagnosis
// reports produced by the external n8n workflow.
package report

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/moolen/faultlens/internal/dga"
)

// Parsed is the structured view of a report.
type Parsed struct {
	FaultType       string   `json:"fault_type,omitempty" yaml:"fault_type,omitempty"`
	Severity        string   `json:"severity,omitempty" yaml:"severity,omitempty"`
	SeverityLevel   int      `json:"severity_level,omitempty" yaml:"severity_level,omitempty"`
	MainDiagnosis   string   `json:"main_diagnosis,omitempty" yaml:"main_diagnosis,omitempty"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
	Metrics         Metrics  `json:"metrics" yaml:"metrics"`
	RawReport       string   `json:"raw_report" yaml:"raw_report"`
	ParsedSuccess   bool     `json:"parsed_success" yaml:"parsed_success"`
}

// Metrics are the key figures printed in a report header.
type Metrics struct {
	SeverityLevel int    `json:"severity_level,omitempty" yaml:"severity_level,omitempty"`
	MaxLevel      int    `json:"max_level,omitempty" yaml:"max_level,omitempty"`
	DiagnosisTime string `json:"diagnosis_time,omitempty" yaml:"diagnosis_time,omitempty"`
	DeviceID      string `json:"device_id,omitempty" yaml:"device_id,omitempty"`
}

var (
	severityRe  = regexp.MustCompile(`总体严重性[：:]\s*([^，\n]+)`)
	faultTypeRe = regexp.MustCompile(`主要故障类型[：:]\s*([^，\n(]+)`)

	// Tried in order; the first hit becomes the main diagnosis.
	diagnosisRes = []*regexp.Regexp{
		regexp.MustCompile(`高能电弧放电`),
		regexp.MustCompile(`[^。]*放电[^。]*`),
		regexp.MustCompile(`[^。]*故障[^。]*`),
		regexp.MustCompile(`DPM[^，]*诊断为[^，。]*`),
		regexp.MustCompile(`杜瓦尔五边形法[^，]*诊断为[^，。]*`),
	}

	boldItemRe   = regexp.MustCompile(`[1-9]\.\s*\*\*([^*]+)\*\*`)
	colonItemRe  = regexp.MustCompile(`[1-9]\.\s*([^：\n]+)[:：]`)
	safetyHeadRe = regexp.MustCompile(`必须执行的安全措施[^：]*[:：]\s*`)
	safetyEndRe  = regexp.MustCompile(`\n\n|\n[#1-9]`)

	levelRe  = regexp.MustCompile(`等级[：:]\s*(\d+)/(\d+)`)
	timeRe   = regexp.MustCompile(`诊断时间[：:]\s*([^\n]+)`)
	deviceRe = regexp.MustCompile(`设备ID[：:]\s*([^\n]+)`)
)

// keyAdvice is matched literally when no numbered recommendations exist.
var keyAdvice = []string{
	"立即停运与隔离",
	"安全警示与区域封锁",
	"接地保护",
	"消防准备",
	"人员防护",
}

// Parse extracts what it can from raw. It never fails; ParsedSuccess is
// false when neither severity, fault type nor a diagnosis was found.
func Parse(raw string) Parsed {
	p := Parsed{RawReport: raw, Recommendations: []string{}}

	if m := severityRe.FindStringSubmatch(raw); m != nil {
		p.Severity = strings.TrimSpace(m[1])
		p.SeverityLevel = dga.Severity(p.Severity).Level()
	}
	if m := faultTypeRe.FindStringSubmatch(raw); m != nil {
		p.FaultType = strings.TrimSpace(m[1])
	}
	for _, re := range diagnosisRes {
		if m := re.FindString(raw); strings.TrimSpace(m) != "" {
			p.MainDiagnosis = strings.TrimSpace(m)
			break
		}
	}

	p.Recommendations = recommendations(raw)
	p.Metrics = ExtractMetrics(raw)
	p.ParsedSuccess = p.Severity != "" || p.FaultType != "" || p.MainDiagnosis != ""
	return p
}

func recommendations(raw string) []string {
	for _, re := range []*regexp.Regexp{boldItemRe, colonItemRe} {
		matches := re.FindAllStringSubmatch(raw, -1)
		if len(matches) == 0 {
			continue
		}
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			if rec := cleanRecommendation(m[1]); rec != "" {
				out = append(out, rec)
			}
		}
		return out
	}

	if loc := safetyHeadRe.FindStringIndex(raw); loc != nil {
		rest := raw[loc[1]:]
		if end := safetyEndRe.FindStringIndex(rest); end != nil {
			if rec := cleanRecommendation(rest[:end[0]]); rec != "" {
				return []string{rec}
			}
			return []string{}
		}
	}

	out := []string{}
	for _, advice := range keyAdvice {
		if strings.Contains(raw, advice) {
			out = append(out, advice)
		}
	}
	return out
}

func cleanRecommendation(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "**", "")
}

// ExtractMetrics reads the level, time and device lines of a report.
func ExtractMetrics(raw string) Metrics {
	var m Metrics
	if g := levelRe.FindStringSubmatch(raw); g != nil {
		m.SeverityLevel, _ = strconv.Atoi(g[1])
		m.MaxLevel, _ = strconv.Atoi(g[2])
	}
	if g := timeRe.FindStringSubmatch(raw); g != nil {
		m.DiagnosisTime = strings.TrimSpace(g[1])
	}
	if g := deviceRe.FindStringSubmatch(raw); g != nil {
		m.DeviceID = strings.TrimSpace(g[1])
	}
	return m
}

// Summary renders a one-line summary such as
// "严重性: 危急 | 故障类型: 电弧放电 | 主要建议: a, b".
func Summary(p Parsed) string {
	var parts []string
	if p.Severity != "" {
		parts = append(parts, "严重性: "+p.Severity)
	}
	if p.FaultType != "" {
		parts = append(parts, "故障类型: "+p.FaultType)
	} else if p.MainDiagnosis != "" {
		parts = append(parts, "诊断结果: "+p.MainDiagnosis)
	}
	if len(p.Recommendations) > 0 {
		recs := p.Recommendations
		if len(recs) > 2 {
			recs = recs[:2]
		}
		parts = append(parts, "主要建议: "+strings.Join(recs, ", "))
	}
	return strings.Join(parts, " | ")
}
