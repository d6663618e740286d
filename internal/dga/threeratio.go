package dga

import (
	"fmt"
	"strings"
)

// Threshold is an inclusive (low, high) band for one ratio.
type Threshold struct {
	Low  float64 `json:"low" yaml:"low" koanf:"low"`
	High float64 `json:"high" yaml:"high" koanf:"high"`
}

// RatioThresholds configures the three-ratio encoder.
type RatioThresholds struct {
	C2H2C2H4 Threshold `json:"c2h2_c2h4" yaml:"c2h2_c2h4" koanf:"c2h2_c2h4"`
	CH4H2    Threshold `json:"ch4_h2" yaml:"ch4_h2" koanf:"ch4_h2"`
	C2H4C2H6 Threshold `json:"c2h4_c2h6" yaml:"c2h4_c2h6" koanf:"c2h4_c2h6"`
}

// DefaultThresholds returns the IEC-style bands used when nothing is configured.
func DefaultThresholds() RatioThresholds {
	return RatioThresholds{
		C2H2C2H4: Threshold{Low: 0.1, High: 3},
		CH4H2:    Threshold{Low: 0.1, High: 1},
		C2H4C2H6: Threshold{Low: 1, High: 3},
	}
}

// Validate reports bands with low > high or negative bounds.
func (t RatioThresholds) Validate() error {
	for name, th := range map[string]Threshold{
		"c2h2_c2h4": t.C2H2C2H4,
		"ch4_h2":    t.CH4H2,
		"c2h4_c2h6": t.C2H4C2H6,
	} {
		if th.Low < 0 || th.High < 0 {
			return fmt.Errorf("threshold %s: bounds must be non-negative", name)
		}
		if th.Low > th.High {
			return fmt.Errorf("threshold %s: low %.3g exceeds high %.3g", name, th.Low, th.High)
		}
	}
	return nil
}

type codeEntry struct {
	faultType      string
	diagnosis      string
	recommendation string
	confidence     float64
}

var threeRatioTable = map[string]codeEntry{
	"000": {"低温过热", "150℃以下低温过热故障", "检查接触不良、散热不良等问题", 0.82},
	"001": {"低温过热", "150-300℃低温过热故障", "检查线圈接触电阻、引线连接等", 0.85},
	"002": {"低温过热", "局部过热伴随轻微放电", "全面检查过热部位和绝缘状态", 0.80},
	"010": {"局部放电", "油中或固体绝缘中的局部放电", "检查绝缘系统，查找放电源", 0.88},
	"020": {"低温过热", "300℃以下过热故障", "检查负载和冷却系统", 0.86},
	"021": {"中温过热", "300-700℃中温过热故障", "检查线圈导线焊接、引线绝缘等", 0.90},
	"022": {"高温过热", "700℃以上高温过热故障", "立即检查铁芯、夹件等严重过热源", 0.92},
	"100": {"火花放电", "油中低能量火花放电", "检查金属异物、接地不良等", 0.84},
	"101": {"火花放电", "油中火花放电伴轻微过热", "检查悬浮放电和接触不良", 0.82},
	"102": {"高能放电", "油中高能量放电或电弧", "立即停机检查，可能有严重故障", 0.93},
	"110": {"火花放电", "混合型故障：火花放电+局部放电", "综合检查放电和绝缘系统", 0.80},
	"120": {"火花放电兼过热", "火花放电伴随过热", "检查放电源和过热原因", 0.83},
	"200": {"电弧放电", "油中电弧放电", "紧急停机检查，存在电弧故障", 0.95},
	"201": {"电弧放电兼过热", "电弧放电伴随过热", "立即停机，检查严重电气故障", 0.94},
	"202": {"电弧放电兼过热", "严重电弧放电伴高温过热", "紧急停机，可能导致设备损坏", 0.96},
	"210": {"电弧放电", "电弧放电伴局部放电", "紧急停机，检查绝缘及电弧放电源", 0.93},
}

// KnownCodes returns the codes with a dedicated table entry.
func KnownCodes() []string {
	codes := make([]string, 0, len(threeRatioTable))
	for c := range threeRatioTable {
		codes = append(codes, c)
	}
	return codes
}

// ThreeRatioAnalyzer encodes gas ratios into a three-digit code.
// The zero value is not usable; construct with NewThreeRatioAnalyzer.
type ThreeRatioAnalyzer struct {
	thresholds RatioThresholds
}

// NewThreeRatioAnalyzer returns an analyzer with the given bands.
func NewThreeRatioAnalyzer(t RatioThresholds) *ThreeRatioAnalyzer {
	return &ThreeRatioAnalyzer{thresholds: t}
}

// Thresholds returns the configured bands.
func (a *ThreeRatioAnalyzer) Thresholds() RatioThresholds {
	return a.thresholds
}

// CalculateCode returns the code for p, e.g. "102".
func (a *ThreeRatioAnalyzer) CalculateCode(p Params) string {
	var b strings.Builder
	b.Grow(3)
	b.WriteByte(encodeStandard(C2H2ToC2H4(p), a.thresholds.C2H2C2H4))
	b.WriteByte(encodeReversed(CH4ToH2(p), a.thresholds.CH4H2))
	b.WriteByte(encodeStandard(C2H4ToC2H6(p), a.thresholds.C2H4C2H6))
	return b.String()
}

// Analyze computes the code for p and looks it up.
func (a *ThreeRatioAnalyzer) Analyze(p Params) Finding {
	return DiagnoseByCode(a.CalculateCode(p))
}

// DiagnoseByCode maps a code to its finding. Unknown codes map to a
// low-confidence fallback.
func DiagnoseByCode(code string) Finding {
	e, ok := threeRatioTable[code]
	if !ok {
		return Finding{
			Method:         MethodThreeRatio,
			FaultType:      "未知故障",
			Diagnosis:      fmt.Sprintf("三比值代码%s未能识别具体故障类型", code),
			Recommendation: "建议结合其他检测手段进一步分析",
			Confidence:     0.3,
			ThreeRatioCode: code,
		}
	}
	return Finding{
		Method:         MethodThreeRatio,
		FaultType:      e.faultType,
		Diagnosis:      e.diagnosis,
		Recommendation: e.recommendation,
		Confidence:     e.confidence,
		ThreeRatioCode: code,
	}
}

func encodeStandard(ratio float64, t Threshold) byte {
	switch {
	case ratio < t.Low:
		return '0'
	case ratio <= t.High:
		return '1'
	default:
		return '2'
	}
}

// CH4/H2 is inverted: a low ratio points at partial discharge.
func encodeReversed(ratio float64, t Threshold) byte {
	switch {
	case ratio < t.Low:
		return '1'
	case ratio <= t.High:
		return '0'
	default:
		return '2'
	}
}
