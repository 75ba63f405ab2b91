package score

import (
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

//Verdict is the categorical gate derived from findings
type Verdict string

const (
	Pass Verdict = "pass"
	Warn Verdict = "warn"
	Fail Verdict = "fail"
)

//Summary tallies raw findings per severity and the number of files actually scanned
type Summary struct {
	FilesScanned int `json:"files_scanned"`
	Total        int `json:"total"`
	Critical     int `json:"critical"`
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
}

//Output is the result of a scan
type Output struct {
	Verdict    Verdict                `json:"verdict"`
	Score      int                    `json:"score"`
	Confidence diagnostics.Confidence `json:"confidence"`
	Summary    Summary                `json:"summary"`
	Findings   []diagnostics.Finding  `json:"findings"`
}

var deductions = map[diagnostics.Severity]int{
	diagnostics.Critical: 25,
	diagnostics.High:     10,
	diagnostics.Medium:   3,
	diagnostics.Low:      1,
}

//Deduction is the score penalty for the first occurrence of a (category, severity) pair
func Deduction(s diagnostics.Severity) int {
	return deductions[s]
}

//RepeatDeduction is the penalty for every further occurrence of an already seen pair: a third, rounded up
func RepeatDeduction(s diagnostics.Severity) int {
	d := deductions[s]
	return (d + 2) / 3
}

type pair struct {
	category diagnostics.Category
	severity diagnostics.Severity
}

//Aggregate computes score, verdict and summary. It is a pure function of its inputs.
func Aggregate(findings []diagnostics.Finding, filesScanned int) Output {
	if findings == nil {
		findings = []diagnostics.Finding{}
	}
	out := Output{
		Confidence: diagnostics.HighConfidence,
		Summary: Summary{
			FilesScanned: filesScanned,
			Total:        len(findings),
		},
		Findings: findings,
	}

	score := 100
	seen := make(map[pair]struct{})
	blind, partial := false, false
	for _, f := range findings {
		switch f.Severity {
		case diagnostics.Critical:
			out.Summary.Critical++
		case diagnostics.High:
			out.Summary.High++
		case diagnostics.Medium:
			out.Summary.Medium++
		case diagnostics.Low:
			out.Summary.Low++
		}
		p := pair{f.Category, f.Severity}
		if _, present := seen[p]; present {
			score -= RepeatDeduction(f.Severity)
		} else {
			seen[p] = struct{}{}
			score -= Deduction(f.Severity)
		}
		if f.Category.IsBlind() {
			blind = true
		}
		if f.Category.IsPartial() {
			partial = true
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	if partial {
		out.Confidence = diagnostics.LowConfidence
	}
	if blind {
		score = 0
		out.Confidence = diagnostics.LowConfidence
	}
	out.Score = score

	switch {
	case out.Summary.Critical > 0 || out.Summary.High > 0:
		out.Verdict = Fail
	case out.Summary.Medium > 0:
		out.Verdict = Warn
	default:
		out.Verdict = Pass
	}
	return out
}

//Blind produces the output for a source whose code could not be inspected at all
func Blind(category diagnostics.Category, severity diagnostics.Severity, message string) Output {
	return Aggregate([]diagnostics.Finding{diagnostics.NewFinding(category, severity, "", 0, message)}, 0)
}
