package dga

import "time"

// Method identifies the analyzer that produced a finding
type Method string

const (
	MethodThreeRatio Method = "three_ratio"
	MethodDPM        Method = "dpm"
	MethodPRPD       Method = "prpd"
	MethodGasModel   Method = "gas_analysis"
	MethodPDModel    Method = "pd_analysis"
)

// Gas field names as they appear in JSON input and workflow conditions.
const (
	FieldH2   = "H2_ppm"
	FieldCH4  = "CH4_ppm"
	FieldC2H6 = "C2H6_ppm"
	FieldC2H4 = "C2H4_ppm"
	FieldC2H2 = "C2H2_ppm"
	FieldCO   = "CO_ppm"
	FieldCO2  = "CO2_ppm"
)

// GasFields lists the gas fields in canonical order.
var GasFields = []string{FieldH2, FieldCH4, FieldC2H6, FieldC2H4, FieldC2H2, FieldCO, FieldCO2}

// Params holds one set of measurements. Gas values are in ppm.
type Params struct {
	H2   float64 `json:"H2_ppm" yaml:"H2_ppm"`
	CH4  float64 `json:"CH4_ppm" yaml:"CH4_ppm"`
	C2H6 float64 `json:"C2H6_ppm" yaml:"C2H6_ppm"`
	C2H4 float64 `json:"C2H4_ppm" yaml:"C2H4_ppm"`
	C2H2 float64 `json:"C2H2_ppm" yaml:"C2H2_ppm"`
	CO   float64 `json:"CO_ppm" yaml:"CO_ppm"`
	CO2  float64 `json:"CO2_ppm" yaml:"CO2_ppm"`

	// DPMResult is the pentagon region: T1, T2, T3, D1, D2 or DP
	DPMResult string `json:"dpm_result,omitempty" yaml:"dpm_result,omitempty"`
	// PRPDFeature is the discharge pattern, e.g. symmetric_wide
	PRPDFeature string `json:"prpd_feature,omitempty" yaml:"prpd_feature,omitempty"`

	TransformerID string `json:"transformer_id,omitempty" yaml:"transformer_id,omitempty"`
}

// Lookup returns a gas value by its JSON field name.
func (p Params) Lookup(name string) (float64, bool) {
	switch name {
	case FieldH2:
		return p.H2, true
	case FieldCH4:
		return p.CH4, true
	case FieldC2H6:
		return p.C2H6, true
	case FieldC2H4:
		return p.C2H4, true
	case FieldC2H2:
		return p.C2H2, true
	case FieldCO:
		return p.CO, true
	case FieldCO2:
		return p.CO2, true
	}
	return 0, false
}

// PresetParams is the reference sample shipped with the diagnosis form.
func PresetParams() Params {
	return Params{
		H2:          150,
		CH4:         60,
		C2H6:        20,
		C2H4:        50,
		C2H2:        150,
		CO:          100,
		CO2:         400,
		DPMResult:   "D2",
		PRPDFeature: "symmetric_wide",
	}
}

// Finding is the partial result of a single method.
type Finding struct {
	Method         Method   `json:"method,omitempty" yaml:"method,omitempty"`
	Category       string   `json:"category,omitempty" yaml:"category,omitempty"`
	FaultType      string   `json:"fault_type" yaml:"fault_type"`
	Diagnosis      string   `json:"diagnosis" yaml:"diagnosis"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
	Confidence     float64  `json:"confidence" yaml:"confidence"`
	Path           []string `json:"path,omitempty" yaml:"path,omitempty"`
	ThreeRatioCode string   `json:"three_ratio_code,omitempty" yaml:"three_ratio_code,omitempty"`
}

// Weighted pairs a finding with its fusion weight.
type Weighted struct {
	Finding Finding
	Weight  float64
}

// Result is the fused diagnosis returned to callers.
type Result struct {
	TransformerID  string       `json:"transformer_id,omitempty" yaml:"transformer_id,omitempty"`
	Timestamp      time.Time    `json:"timestamp" yaml:"timestamp"`
	PrimaryMethod  Method       `json:"primary_method,omitempty" yaml:"primary_method,omitempty"`
	Category       string       `json:"category,omitempty" yaml:"category,omitempty"`
	FaultType      string       `json:"fault_type" yaml:"fault_type"`
	Diagnosis      string       `json:"diagnosis" yaml:"diagnosis"`
	Recommendation string       `json:"recommendation" yaml:"recommendation"`
	Confidence     float64      `json:"confidence" yaml:"confidence"`
	Path           []string     `json:"path,omitempty" yaml:"path,omitempty"`
	ThreeRatioCode string       `json:"three_ratio_code,omitempty" yaml:"three_ratio_code,omitempty"`
	Severity       Severity     `json:"severity" yaml:"severity"`
	SeverityLevel  int          `json:"severity_level" yaml:"severity_level"`
	Findings       []Finding    `json:"findings,omitempty" yaml:"findings,omitempty"`
	Consistency    *Consistency `json:"consistency,omitempty" yaml:"consistency,omitempty"`
}

// Consistency reports whether the three methods agree.
type Consistency struct {
	Consistent bool     `json:"consistent" yaml:"consistent"`
	Conflicts  []string `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
}
