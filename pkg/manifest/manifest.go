package manifest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	"github.com/adedayo/checkmate-riskscan/pkg/rules"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

const (
	packageJSON  = "package.json"
	requirements = "requirements.txt"
)

var (
	//characters that end a bare requirement name
	versionOperators = "=<>!~;[ @\t"
	lifecycleScripts = []string{"preinstall", "install", "postinstall"}
	remoteScriptRe   = regexp.MustCompile(`(?i)\b(curl|wget|fetch|https?://|eval|node\s+-e|bash\s+-c|sh\s+-c|powershell|base64)`)
)

//Analyzer cross-references dependency declarations against a table of suspicious packages.
//It never resolves or installs anything.
type Analyzer struct {
	table  *Table
	strict bool
}

//Option configures an Analyzer
type Option func(*Analyzer)

//WithTable replaces the built-in package table
func WithTable(t *Table) Option {
	return func(a *Analyzer) {
		a.table = t
	}
}

//Strict makes unparsable structured manifests produce a finding instead of being ignored
func Strict(strict bool) Option {
	return func(a *Analyzer) {
		a.strict = strict
	}
}

//NewAnalyzer creates an analyzer over the built-in table
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{table: DefaultTable()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

//Analyze inspects every dependency manifest among files, in file order
func (a *Analyzer) Analyze(files []common.File) []diagnostics.Finding {
	findings := []diagnostics.Finding{}
	for _, f := range files {
		switch {
		case isManifest(f.Path, packageJSON):
			findings = append(findings, a.analyzePackageJSON(f)...)
		case isManifest(f.Path, requirements):
			findings = append(findings, a.analyzeRequirements(f)...)
		}
	}
	return findings
}

func isManifest(path, name string) bool {
	p := strings.ReplaceAll(path, "\\", "/")
	return p == name || strings.HasSuffix(p, "/"+name)
}

type npmManifest struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Scripts              map[string]string `json:"scripts"`
}

func (a *Analyzer) analyzePackageJSON(f common.File) []diagnostics.Finding {
	findings := []diagnostics.Finding{}
	var m npmManifest
	if err := json.Unmarshal(f.Content, &m); err != nil {
		util.Logger().Debugf("ignoring unparsable manifest %s: %v", f.Path, err)
		if a.strict {
			findings = append(findings, diagnostics.NewFinding(diagnostics.ManifestUnparsable, diagnostics.Medium, f.Path, 0,
				fmt.Sprintf("Manifest could not be parsed: %v", err)))
		}
		return findings
	}

	for _, deps := range []map[string]string{m.Dependencies, m.DevDependencies, m.OptionalDependencies} {
		for _, name := range sortedKeys(deps) {
			if p, found := a.table.Lookup(NPM, name); found {
				findings = append(findings, suspicious(f.Path, p))
			}
		}
	}

	for _, script := range lifecycleScripts {
		body, present := m.Scripts[script]
		if !present || strings.TrimSpace(body) == "" {
			continue
		}
		severity := diagnostics.Medium
		if remoteScriptRe.MatchString(body) {
			severity = diagnostics.High
		}
		findings = append(findings, diagnostics.NewFinding(diagnostics.InstallScript, severity, f.Path, 0,
			fmt.Sprintf("Runs a %s script on install: %s", script, rules.Excerpt(body))))
	}
	return findings
}

func (a *Analyzer) analyzeRequirements(f common.File) []diagnostics.Finding {
	findings := []diagnostics.Finding{}
	for i, line := range strings.Split(string(f.Content), "\n") {
		name := RequirementName(line)
		if name == "" {
			continue
		}
		if p, found := a.table.Lookup(PyPI, name); found {
			finding := suspicious(f.Path, p)
			finding.Line = i + 1
			findings = append(findings, finding)
		}
	}
	return findings
}

//RequirementName extracts the normalised bare package name from a requirements line.
//Blank lines, comments and pip options yield the empty string.
func RequirementName(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "-") {
		return ""
	}
	if i := strings.IndexAny(line, versionOperators); i >= 0 {
		line = line[:i]
	}
	name := strings.ToLower(strings.TrimSpace(line))
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

func suspicious(path string, p SuspiciousPackage) diagnostics.Finding {
	return diagnostics.NewFinding(diagnostics.SuspiciousDependency, p.Severity, path, 0,
		fmt.Sprintf("Dependency %s (%s) has a known incident: %s", p.Name, p.Ecosystem, p.Rationale))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
