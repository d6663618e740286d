// Package dga diagnoses transformer faults from dissolved gas analysis (DGA)
// and partial discharge measurements.
//
// # Overview
//
// Diagnosis is table-driven and deterministic. Raw gas concentrations are
// turned into ratios, the ratios into method-specific codes, and codes into
// findings through fixed lookup tables. Several findings are then fused into
// one ranked result.
//
// # Pipeline
//
//  1. Ratios: C2H2/C2H4, CH4/H2, C2H4/C2H6 and CO2/CO (see ratios.go)
//  2. Three-ratio method: each ratio is bucketed into a digit, the three
//     digits form a code such as "102", the code selects a finding
//  3. DPM method: a pentagon region (T1..DP) selects a finding
//  4. PRPD method: a phase-resolved discharge pattern selects a finding
//  5. Fusion: weighted-average confidence; the finding with the highest
//     confidence*weight becomes the primary conclusion
//
// # Edge cases
//
// Division by zero never fails: ratios with a zero denominator are 0, except
// CO2/CO which is +Inf. Unknown codes, regions and patterns produce a
// low-confidence fallback finding that still carries readable text, so
// callers never need a "no result" branch.
//
// All functions in this package are safe for concurrent use.
package dga
