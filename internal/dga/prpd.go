package dga

import "fmt"

var prpdTable = map[string]codeEntry{
	"symmetric_wide":   {"绝缘放电", "PRPD对称宽相位窗口分布，典型的绝缘内部放电特征", "检查固体绝缘完整性，排查绝缘劣化", 0.87},
	"symmetric_narrow": {"悬浮放电", "PRPD对称窄相位窗口分布，典型的悬浮电位放电", "检查金属连接松动、等电位线断裂", 0.89},
	"single_pole":      {"尖端放电", "PRPD单极分布，典型的尖端电晕放电", "检查金属尖角、毛刺等缺陷", 0.83},
	"asymmetric_wide":  {"沿面放电", "PRPD非对称宽相位分布，典型的沿面闪络特征", "检查绝缘表面污染、受潮情况", 0.86},
}

// AnalyzePRPD maps a discharge pattern to a finding.
func AnalyzePRPD(feature string) Finding {
	e, ok := prpdTable[feature]
	if !ok {
		return Finding{
			Method:         MethodPRPD,
			FaultType:      "未知放电类型",
			Diagnosis:      fmt.Sprintf("PRPD特征%s无法准确识别", feature),
			Recommendation: "建议进一步分析PRPD模式",
			Confidence:     0.4,
		}
	}
	return Finding{
		Method:         MethodPRPD,
		FaultType:      e.faultType,
		Diagnosis:      e.diagnosis,
		Recommendation: e.recommendation,
		Confidence:     e.confidence,
	}
}
