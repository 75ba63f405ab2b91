package diagnostics

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestExclusions(t *testing.T) {
	def := ExcludeDefinition{
		PathExclusionRegExs:    []string{`^vendor/`},
		ExcludedRuleIDs:        []string{"network-server-listen"},
		ExcludedCategories:     []Category{EnvAccess},
		GloballyExcludedRegExs: []string{`nosec`},
		PathRegexExcludedRuleIDs: map[string][]string{
			`^scripts/`: {"shell-child-process"},
		},
	}
	ep, err := CompileExcludes(&def)
	if err != nil {
		t.Fatal(err)
	}

	finding := func(rule string, c Category, file string) Finding {
		f := NewFinding(c, High, file, 1, "m")
		f.RuleID = rule
		return f
	}

	tests := []struct {
		name    string
		finding Finding
		line    string
		want    bool
	}{
		{"rule id", finding("network-server-listen", NetworkServer, "a.js"), "app.listen(80)", true},
		{"category", finding("env-process", EnvAccess, "a.js"), "process.env.X", true},
		{"path", finding("eval-call", CodeInjection, "vendor/lib.js"), "eval(x)", true},
		{"line regex", finding("eval-call", CodeInjection, "a.js"), "eval(x) // nosec", true},
		{"path scoped rule", finding("shell-child-process", ShellExecution, "scripts/build.js"), "exec('make')", true},
		{"path scoped rule elsewhere", finding("shell-child-process", ShellExecution, "src/build.js"), "exec('make')", false},
		{"unrelated", finding("eval-call", CodeInjection, "a.js"), "eval(x)", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ep.ShouldExclude(tt.finding, tt.line); got != tt.want {
				t.Errorf("ShouldExclude = %v, want %v", got, tt.want)
			}
		})
	}

	if !ep.ShouldExcludePath("vendor/x/y.go") {
		t.Error("expected vendor path to be excluded")
	}
	if ep.ShouldExcludePath("") {
		t.Error("empty path must not be excluded")
	}
}

func TestCompileExcludesErrors(t *testing.T) {
	if _, err := CompileExcludes(&ExcludeDefinition{GloballyExcludedRegExs: []string{"("}}); err == nil {
		t.Error("expected invalid regex to fail")
	}
	if _, err := CompileExcludes(&ExcludeDefinition{ExcludedCategories: []Category{CredentialAccess}}); err == nil {
		t.Error("expected credential_access exclusion to be rejected")
	}
}

func TestSampleExclusionIsValidYAML(t *testing.T) {
	var def ExcludeDefinition
	if err := yaml.Unmarshal([]byte(GenerateSampleExclusion()), &def); err != nil {
		t.Fatal(err)
	}
	if _, err := CompileExcludes(&def); err != nil {
		t.Fatal(err)
	}
}
