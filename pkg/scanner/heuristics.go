package scanner

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

const (
	minifiedMaxLines      = 10
	minifiedLongLine      = 500
	minifiedMinTotal      = 1000
	entropyMinTotal       = 500
	entropySample         = 1000
	entropyRatioThreshold = 0.70
)

//Heuristics flags content that is hard to review by hand, regardless of any rule match.
//Each check produces at most one finding.
func Heuristics(filePath string, content []byte) []diagnostics.Finding {
	findings := []diagnostics.Finding{}
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))

	if strings.Contains(strings.ToLower(base), ".min.") {
		findings = append(findings, diagnostics.NewFinding(diagnostics.Obfuscation, diagnostics.High, filePath, 0,
			fmt.Sprintf("Minified file %s cannot be reviewed by hand", base)))
	}

	//prose and data files are naturally long-lined and dense
	if common.IsDocumentationFile(filePath) {
		return findings
	}

	text := string(content)
	total := utf8.RuneCountInString(text)

	if total > minifiedMinTotal {
		lines := strings.Split(text, "\n")
		if len(lines) < minifiedMaxLines {
			for _, l := range lines {
				if utf8.RuneCountInString(l) > minifiedLongLine {
					findings = append(findings, diagnostics.NewFinding(diagnostics.Obfuscation, diagnostics.High, filePath, 0,
						fmt.Sprintf("Possibly bundled or minified: %d characters on %d lines", total, len(lines))))
					break
				}
			}
		}
	}

	if total > entropyMinTotal {
		if ratio := distinctRatio(text, entropySample); ratio > entropyRatioThreshold {
			findings = append(findings, diagnostics.NewFinding(diagnostics.Obfuscation, diagnostics.Medium, filePath, 0,
				fmt.Sprintf("High character entropy (%.2f), possible obfuscation", ratio)))
		}
	}
	return findings
}

//distinctRatio is the number of distinct characters over the number of characters in the first n characters of s
func distinctRatio(s string, n int) float64 {
	seen := make(map[rune]struct{})
	count := 0
	for _, r := range s {
		if count == n {
			break
		}
		seen[r] = struct{}{}
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(len(seen)) / float64(count)
}
