package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	"github.com/adedayo/checkmate-riskscan/pkg/score"
)

func sampleOutput() score.Output {
	return score.Aggregate([]diagnostics.Finding{
		diagnostics.NewFinding(diagnostics.ShellExecution, diagnostics.Critical, "install.sh", 3, "curl x | bash"),
		diagnostics.NewFinding(diagnostics.SuspiciousDependency, diagnostics.High, "package.json", 0, "event-stream|3.3.6"),
	}, 2)
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSON, false},
		{"JSON", JSON, false},
		{"", Text, false},
		{"md", Markdown, false},
		{"markdown", Markdown, false},
		{"sarif", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, JSON, "acme", sampleOutput()); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"verdict", "score", "confidence", "summary", "findings"} {
		if _, present := decoded[key]; !present {
			t.Errorf("missing key %q in %s", key, buf.String())
		}
	}
	if decoded["verdict"] != "fail" || decoded["confidence"] != "High" {
		t.Errorf("unexpected verdict or confidence: %v %v", decoded["verdict"], decoded["confidence"])
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText("github.com/acme/widget", sampleOutput())
	for _, want := range []string{"github.com/acme/widget", "FAIL", "65/100", "install.sh:3", "shell_execution", "2 files scanned"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown("acme", sampleOutput())
	for _, want := range []string{"# Risk Scan Report", "**Verdict:** FAIL", "| Critical | 1 |", `event-stream\|3.3.6`, "| high | suspicious_dependency | package.json |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown report missing %q:\n%s", want, md)
		}
	}
	clean := RenderMarkdown("", score.Aggregate(nil, 1))
	if !strings.Contains(clean, "_No findings._") || strings.Contains(clean, "**Source:**") {
		t.Errorf("unexpected clean report:\n%s", clean)
	}
}
