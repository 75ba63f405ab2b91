package score

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

func finding(c diagnostics.Category, s diagnostics.Severity) diagnostics.Finding {
	return diagnostics.NewFinding(c, s, "a.js", 1, "m")
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		findings []diagnostics.Finding
		score    int
		verdict  Verdict
	}{
		{"clean", nil, 100, Pass},
		{"one low", []diagnostics.Finding{finding(diagnostics.EnvAccess, diagnostics.Low)}, 99, Pass},
		{"one medium", []diagnostics.Finding{finding(diagnostics.Obfuscation, diagnostics.Medium)}, 97, Warn},
		{"one critical", []diagnostics.Finding{finding(diagnostics.MaliciousKnown, diagnostics.Critical)}, 75, Fail},
		{"repeat critical", []diagnostics.Finding{
			finding(diagnostics.MaliciousKnown, diagnostics.Critical),
			finding(diagnostics.MaliciousKnown, diagnostics.Critical),
		}, 66, Fail},
		{"distinct categories", []diagnostics.Finding{
			finding(diagnostics.ShellExecution, diagnostics.High),
			finding(diagnostics.CodeInjection, diagnostics.High),
		}, 80, Fail},
		{"repeat high", []diagnostics.Finding{
			finding(diagnostics.ShellExecution, diagnostics.High),
			finding(diagnostics.ShellExecution, diagnostics.High),
			finding(diagnostics.ShellExecution, diagnostics.High),
		}, 82, Fail},
		{"clamped", func() []diagnostics.Finding {
			out := []diagnostics.Finding{}
			for _, c := range []diagnostics.Category{
				diagnostics.ShellExecution, diagnostics.CodeInjection, diagnostics.CredentialAccess,
				diagnostics.MaliciousKnown, diagnostics.DataExfiltration,
			} {
				out = append(out, finding(c, diagnostics.Critical))
			}
			return out
		}(), 0, Fail},
		{"many lows still pass", func() []diagnostics.Finding {
			out := []diagnostics.Finding{}
			for i := 0; i < 200; i++ {
				out = append(out, finding(diagnostics.EnvAccess, diagnostics.Low))
			}
			return out
		}(), 0, Pass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Aggregate(tt.findings, 3)
			if out.Score != tt.score || out.Verdict != tt.verdict {
				t.Errorf("got score %d verdict %s, want %d %s", out.Score, out.Verdict, tt.score, tt.verdict)
			}
			if out.Summary.Total != len(tt.findings) || out.Summary.FilesScanned != 3 {
				t.Errorf("summary %+v", out.Summary)
			}
			if out.Confidence != diagnostics.HighConfidence {
				t.Errorf("confidence %v", out.Confidence)
			}
		})
	}
}

func TestSeverityMonotonicity(t *testing.T) {
	severities := []diagnostics.Severity{diagnostics.Low, diagnostics.Medium, diagnostics.High, diagnostics.Critical}
	base := []diagnostics.Finding{finding(diagnostics.EnvAccess, diagnostics.Low)}
	prev := Aggregate(base, 1).Score
	for _, s := range severities[1:] {
		f := []diagnostics.Finding{finding(diagnostics.EnvAccess, s)}
		score := Aggregate(f, 1).Score
		if score > prev {
			t.Errorf("raising severity to %s raised the score from %d to %d", s, prev, score)
		}
		prev = score
	}
}

func TestDiminishingReturns(t *testing.T) {
	for _, s := range []diagnostics.Severity{diagnostics.Low, diagnostics.Medium, diagnostics.High, diagnostics.Critical} {
		one := 100 - Aggregate([]diagnostics.Finding{finding(diagnostics.ShellExecution, s)}, 1).Score
		two := 100 - Aggregate([]diagnostics.Finding{finding(diagnostics.ShellExecution, s), finding(diagnostics.ShellExecution, s)}, 1).Score
		if two-one > one {
			t.Errorf("%s: repeat cost %d exceeds first cost %d", s, two-one, one)
		}
		if two-one != RepeatDeduction(s) {
			t.Errorf("%s: repeat cost %d, want %d", s, two-one, RepeatDeduction(s))
		}
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	findings := []diagnostics.Finding{
		finding(diagnostics.ShellExecution, diagnostics.High),
		finding(diagnostics.ShellExecution, diagnostics.High),
		finding(diagnostics.EnvAccess, diagnostics.Low),
		finding(diagnostics.Obfuscation, diagnostics.Medium),
		finding(diagnostics.CredentialAccess, diagnostics.Critical),
	}
	want := Aggregate(findings, 2)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]diagnostics.Finding(nil), findings...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Aggregate(shuffled, 2)
		if diff := cmp.Diff(want.Summary, got.Summary); diff != "" || got.Score != want.Score || got.Verdict != want.Verdict {
			t.Errorf("order changed the result: %d %s %s", got.Score, got.Verdict, diff)
		}
	}
}

func TestBlindSources(t *testing.T) {
	for _, c := range []diagnostics.Category{diagnostics.FetchError, diagnostics.EmptyRepo, diagnostics.UnsupportedSource} {
		out := Blind(c, diagnostics.Medium, "nothing to see")
		if out.Score != 0 || out.Confidence != diagnostics.LowConfidence {
			t.Errorf("%s: score %d confidence %s", c, out.Score, out.Confidence)
		}
		if out.Summary.FilesScanned != 0 || len(out.Findings) != 1 {
			t.Errorf("%s: summary %+v", c, out.Summary)
		}
	}
	if out := Blind(diagnostics.FetchError, diagnostics.Critical, "unreachable"); out.Verdict != Fail {
		t.Errorf("fetch error verdict %s", out.Verdict)
	}
}

func TestPartialScanLowersConfidence(t *testing.T) {
	out := Aggregate([]diagnostics.Finding{finding(diagnostics.ScanIncomplete, diagnostics.High)}, 3)
	if out.Confidence != diagnostics.LowConfidence || out.Verdict != Fail {
		t.Errorf("expected a low-confidence fail, got %s %s", out.Confidence, out.Verdict)
	}
	if out.Score != 90 {
		t.Errorf("a partial scan keeps its score, got %d", out.Score)
	}
}

func TestEmptyFindingsSerialiseAsArray(t *testing.T) {
	if out := Aggregate(nil, 0); out.Findings == nil {
		t.Error("findings must be an empty slice, not nil")
	}
}
