package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	"github.com/adedayo/checkmate-riskscan/pkg/score"
)

//Format of a rendered report
type Format string

const (
	JSON     Format = "json"
	Text     Format = "text"
	Markdown Format = "markdown"
)

//ParseFormat accepts json, text and markdown (or md)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "text", "":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want json, text or markdown)", s)
	}
}

//Write renders the output of a scan of source in the given format
func Write(w io.Writer, format Format, source string, out score.Output) error {
	switch format {
	case JSON:
		return WriteJSON(w, out)
	case Markdown:
		_, err := io.WriteString(w, RenderMarkdown(source, out))
		return err
	default:
		_, err := io.WriteString(w, RenderText(source, out))
		return err
	}
}

//WriteJSON writes the scan output as indented JSON
func WriteJSON(w io.Writer, out score.Output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

var (
	verdictStyles = map[score.Verdict]lipgloss.Style{
		score.Pass: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		score.Warn: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		score.Fail: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
	severityStyles = map[diagnostics.Severity]lipgloss.Style{
		diagnostics.Critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		diagnostics.High:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		diagnostics.Medium:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		diagnostics.Low:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

//RenderText renders a terminal report; colours are dropped when the output is not a terminal
func RenderText(source string, out score.Output) string {
	var sb strings.Builder
	if source != "" {
		sb.WriteString(headerStyle.Render("Risk scan of "+source) + "\n")
	}
	fmt.Fprintf(&sb, "Verdict: %s  Score: %d/100  Confidence: %s\n",
		verdictStyles[out.Verdict].Render(strings.ToUpper(string(out.Verdict))), out.Score, out.Confidence)
	s := out.Summary
	sb.WriteString(dimStyle.Render(fmt.Sprintf("%d files scanned, %d findings (critical %d, high %d, medium %d, low %d)",
		s.FilesScanned, s.Total, s.Critical, s.High, s.Medium, s.Low)) + "\n")

	if len(out.Findings) == 0 {
		return sb.String()
	}
	sb.WriteString("\n")
	for _, f := range out.Findings {
		severity := severityStyles[f.Severity].Render(fmt.Sprintf("%-8s", f.Severity))
		fmt.Fprintf(&sb, "%s %-21s %s", severity, f.Category, f.Message)
		if loc := location(f); loc != "" {
			sb.WriteString(dimStyle.Render("  (" + loc + ")"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

//RenderMarkdown renders a Markdown report suitable for pull request comments
func RenderMarkdown(source string, out score.Output) string {
	var sb strings.Builder

	sb.WriteString("# Risk Scan Report\n\n")
	if source != "" {
		fmt.Fprintf(&sb, "**Source:** `%s`\n", source)
	}
	fmt.Fprintf(&sb, "**Verdict:** %s\n", strings.ToUpper(string(out.Verdict)))
	fmt.Fprintf(&sb, "**Score:** %d/100\n", out.Score)
	fmt.Fprintf(&sb, "**Confidence:** %s\n\n", out.Confidence)

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Severity | Count |\n")
	sb.WriteString("| :--- | :--- |\n")
	fmt.Fprintf(&sb, "| Critical | %d |\n", out.Summary.Critical)
	fmt.Fprintf(&sb, "| High | %d |\n", out.Summary.High)
	fmt.Fprintf(&sb, "| Medium | %d |\n", out.Summary.Medium)
	fmt.Fprintf(&sb, "| Low | %d |\n", out.Summary.Low)
	fmt.Fprintf(&sb, "\nFiles scanned: %d\n\n", out.Summary.FilesScanned)

	sb.WriteString("## Findings\n\n")
	if len(out.Findings) == 0 {
		sb.WriteString("_No findings._\n")
		return sb.String()
	}
	sb.WriteString("| Severity | Category | Location | Message |\n")
	sb.WriteString("| :--- | :--- | :--- | :--- |\n")
	for _, f := range out.Findings {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", f.Severity, f.Category, cell(location(f)), cell(f.Message))
	}
	return sb.String()
}

func location(f diagnostics.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
