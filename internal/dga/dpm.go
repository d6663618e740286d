package dga

import "fmt"

var dpmTable = map[string]codeEntry{
	"T1": {"低温过热", "DPM显示T1区域，表明存在低温过热", "检查负载和散热系统", 0.85},
	"T2": {"中温过热", "DPM显示T2区域，表明存在中温过热", "检查导线连接和绝缘状态", 0.88},
	"T3": {"高温过热", "DPM显示T3区域，表明存在高温过热", "立即检查铁芯和夹件", 0.90},
	"D1": {"低能放电", "DPM显示D1区域，存在低能量放电", "检查绝缘系统和接地", 0.83},
	"D2": {"高能放电", "DPM显示D2区域，存在高能量放电", "立即停机检查电弧故障", 0.92},
	"DP": {"混合故障", "DPM显示DP区域，存在复合型故障", "综合分析放电和过热问题", 0.78},
}

// AnalyzeDPM maps a pentagon region to a finding.
func AnalyzeDPM(region string) Finding {
	e, ok := dpmTable[region]
	if !ok {
		return Finding{
			Method:         MethodDPM,
			FaultType:      "未知DPM结果",
			Diagnosis:      fmt.Sprintf("DPM结果%s无法识别", region),
			Recommendation: "请确认DPM检测结果的准确性",
			Confidence:     0.3,
		}
	}
	return Finding{
		Method:         MethodDPM,
		FaultType:      e.faultType,
		Diagnosis:      e.diagnosis,
		Recommendation: e.recommendation,
		Confidence:     e.confidence,
	}
}
