package dga

import "math"

// C2H2ToC2H4 returns C2H2/C2H4, or 0 when C2H4 is 0.
func C2H2ToC2H4(p Params) float64 {
	return safeRatio(p.C2H2, p.C2H4)
}

// CH4ToH2 returns CH4/H2, or 0 when H2 is 0.
func CH4ToH2(p Params) float64 {
	return safeRatio(p.CH4, p.H2)
}

// C2H4ToC2H6 returns C2H4/C2H6, or 0 when C2H6 is 0.
func C2H4ToC2H6(p Params) float64 {
	return safeRatio(p.C2H4, p.C2H6)
}

// CO2ToCO returns CO2/CO. Without CO the ratio is undefined and reported as
// +Inf so that it always lands in the extreme bucket.
func CO2ToCO(p Params) float64 {
	if p.CO > 0 {
		return p.CO2 / p.CO
	}
	return math.Inf(1)
}

// TotalHydrocarbons is CH4+C2H2+C2H4+C2H6.
func TotalHydrocarbons(p Params) float64 {
	return p.CH4 + p.C2H2 + p.C2H4 + p.C2H6
}

// FaultGases is C2H2+C2H4+C2H6.
func FaultGases(p Params) float64 {
	return p.C2H2 + p.C2H4 + p.C2H6
}

func safeRatio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return 0
}
