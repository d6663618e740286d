package dga

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownModel is returned for a model id that is not registered.
	ErrUnknownModel = errors.New("unknown diagnosis model")
	// ErrModelDisabled is returned for a registered model that is not open yet.
	ErrModelDisabled = errors.New("diagnosis model disabled")
)

const (
	ModelGasAnalysis      = "gas_analysis"
	ModelPDAnalysis       = "pd_analysis"
	ModelMoistureAnalysis = "moisture_analysis"
)

// Model describes a selectable diagnosis model.
type Model struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Disabled    bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

var models = []Model{
	{ID: ModelGasAnalysis, Name: "油中溶解气体诊断模型", Description: "基于DGA数据进行变压器内部过热和放电性故障诊断。"},
	{ID: ModelPDAnalysis, Name: "局部放电类型诊断模型", Description: "根据PRPD图谱特征识别局部放电的具体类型。"},
	{ID: ModelMoistureAnalysis, Name: "设备受潮与绝缘老化模型", Description: "（暂未开放）", Disabled: true},
}

// Models returns the registered models in display order.
func Models() []Model {
	return append([]Model(nil), models...)
}

// LookupModel returns the model with the given id.
func LookupModel(id string) (Model, error) {
	for _, m := range models {
		if m.ID == id {
			if m.Disabled {
				return m, fmt.Errorf("%w: %s", ErrModelDisabled, id)
			}
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
}

// Knowledge base categories.
const (
	CategoryOilPaperOverheat    = "oil_paper_overheat"
	CategoryLowTempOverheat     = "low_temp_overheat"
	CategoryMidTempOverheat     = "mid_temp_overheat"
	CategoryHighTempOverheat    = "high_temp_overheat"
	CategorySparkDischarge      = "spark_discharge"
	CategoryArcDischarge        = "arc_discharge"
	CategoryInsulationDischarge = "insulation_discharge"
	CategoryFloatingDischarge   = "floating_discharge"
	CategoryTipDischarge        = "tip_discharge"
	CategorySurfaceDischarge    = "surface_discharge"
	CategoryDefault             = "default_case"
)

var knowledgeBase = map[string]codeEntry{
	CategoryOilPaperOverheat:    {"油纸混合绝缘过热", "CO、CO2 含量显著增高，总烃中甲烷、乙烯占主要成分，表明故障涉及固体绝缘材料，且温度较高。", "应缩短试验周期，密切监视，必要时安排停电检查。", 0.86},
	CategoryLowTempOverheat:     {"低温过热 (<300°C)", "通常由铁芯局部过热、接触不良等引起。特征气体以CH₄和C₂H₆为主。", "加强监测，短期内安排停机检查。", 0.84},
	CategoryMidTempOverheat:     {"中温过热 (300-700°C)", "可能由接头松动、涡流损耗过大导致。C₂H₄含量增加，开始超过CH₄。", "建议排查线圈导线焊接缺陷、引线绝缘破损等问题。", 0.87},
	CategoryHighTempOverheat:    {"高温过热 (>700°C)", "严重过热故障，C₂H₄成为主要特征气体。", "建议排查铁芯及夹件环流、导线焊接缺陷、引线连接缺陷等。", 0.90},
	CategorySparkDischarge:      {"火花放电", "能量较高的局部放电，C₂H₂含量中等（5%-30%），无明显过热特征。", "建议检查铁心接地线与端子盒连接、压板等电位连接松动等情况。", 0.85},
	CategoryArcDischarge:        {"高能放电 (电弧)", "严重的电弧放电故障，C₂H₂含量极高（>30%）。", "立即停机检查，进行详细的内部探伤和油样化验。", 0.92},
	CategoryInsulationDischarge: {"绝缘放电", "PRPD对称性强，相位窗口相对较宽（约 60°~90°）。", "建议检查铁芯夹件绝缘降低、压板绝缘缺陷、绝缘中杂质侵入等情况。", 0.87},
	CategoryFloatingDischarge:   {"悬浮放电", "PRPD对称分布，相位窗口相对较窄（约 30°~45°）。", "建议检查等电位的金属导线松动、脱落、断裂，金属异物附着线圈等情况。", 0.89},
	CategoryTipDischarge:        {"尖端放电", "PRPD单极分布，多仅存于正半周或负半周。", "建议检查放电部位金属加工粗糙、安装缺陷等造成的局部形成尖角、毛刺等情况。", 0.83},
	CategorySurfaceDischarge:    {"沿面放电", "PRPD不对称分布，相位窗口极宽（>100°）。", "建议检查绝缘表面污染、受潮、表面绝缘老化等情况。", 0.86},
	CategoryDefault:             {"未识别故障", "当前参数组合未匹配到明确的故障类型。", "建议进行全面检查或咨询专家。", 0.3},
}

var prpdCategory = map[string]string{
	"symmetric_wide":   CategoryInsulationDischarge,
	"symmetric_narrow": CategoryFloatingDischarge,
	"single_pole":      CategoryTipDischarge,
	"asymmetric_wide":  CategorySurfaceDischarge,
}

// gasRule is one step of the ordered gas-analysis rule path.
type gasRule struct {
	category string
	path     []string
	match    func(Params) bool
}

// gasRules is evaluated top to bottom; the first match wins.
var gasRules = []gasRule{
	{CategoryOilPaperOverheat, []string{"过热故障", "中温过热"}, func(p Params) bool {
		return p.CO > 80 && p.C2H4 > 80 && p.CH4 > 80
	}},
	{CategoryArcDischarge, []string{"放电故障", "高能放电"}, func(p Params) bool { return p.C2H2 > 30 }},
	{CategorySparkDischarge, []string{"放电故障", "火花放电"}, func(p Params) bool { return p.C2H2 > 5 }},
	{CategoryHighTempOverheat, []string{"过热故障", "高温过热"}, func(p Params) bool { return p.C2H4 > 150 }},
	{CategoryMidTempOverheat, []string{"过热故障", "中温过热"}, func(p Params) bool { return p.C2H4 > 50 }},
	{CategoryLowTempOverheat, []string{"过热故障", "低温过热"}, func(p Params) bool { return p.CH4 > 50 }},
}

// DiagnoseModel runs the rule path of a named model. The three-ratio code of
// p is attached regardless of model.
func DiagnoseModel(modelID string, p Params, thresholds RatioThresholds) (Finding, error) {
	if _, err := LookupModel(modelID); err != nil {
		return Finding{}, err
	}

	category := CategoryDefault
	var path []string
	var method Method

	switch modelID {
	case ModelGasAnalysis:
		method = MethodGasModel
		for _, r := range gasRules {
			if r.match(p) {
				category = r.category
				path = r.path
				break
			}
		}
	case ModelPDAnalysis:
		method = MethodPDModel
		if c, ok := prpdCategory[p.PRPDFeature]; ok {
			category = c
			path = []string{knowledgeBase[c].faultType}
		} else {
			path = []string{"放电故障"}
		}
	}

	e := knowledgeBase[category]
	return Finding{
		Method:         method,
		Category:       category,
		FaultType:      e.faultType,
		Diagnosis:      e.diagnosis,
		Recommendation: e.recommendation,
		Confidence:     e.confidence,
		Path:           append([]string(nil), path...),
		ThreeRatioCode: NewThreeRatioAnalyzer(thresholds).CalculateCode(p),
	}, nil
}
