package dga

import "strings"

// Severity is the operator-facing urgency label.
type Severity string

const (
	SeverityNormal    Severity = "正常"
	SeverityAttention Severity = "注意"
	SeverityWarning   Severity = "警告"
	SeveritySerious   Severity = "严重"
	SeverityCritical  Severity = "危急"
)

// Level returns 1 (正常) through 5 (危急).
func (s Severity) Level() int {
	switch s {
	case SeverityNormal:
		return 1
	case SeverityAttention:
		return 2
	case SeverityWarning:
		return 3
	case SeveritySerious:
		return 4
	case SeverityCritical:
		return 5
	}
	return 0
}

// SeverityRule assigns a severity to fault types containing Match.
type SeverityRule struct {
	Match    string
	Severity Severity
}

// severityRules is checked in order; the first substring match wins.
var severityRules = []SeverityRule{
	// Critical - arcing, stop the unit
	{"电弧", SeverityCritical},
	{"高能", SeverityCritical},

	// Serious
	{"高温过热", SeveritySerious},
	{"油纸混合绝缘过热", SeveritySerious},
	{"悬浮放电", SeveritySerious},
	{"沿面放电", SeveritySerious},

	// Warning
	{"火花放电", SeverityWarning},
	{"中温过热", SeverityWarning},
	{"混合故障", SeverityWarning},
	{"低能放电", SeverityWarning},

	{"正常", SeverityNormal},
	{"无故障", SeverityNormal},
}

// SeverityFor classifies a fault type. Anything unmatched, including the
// fallback types, is 注意.
func SeverityFor(faultType string) Severity {
	for _, rule := range severityRules {
		if strings.Contains(faultType, rule.Match) {
			return rule.Severity
		}
	}
	return SeverityAttention
}
