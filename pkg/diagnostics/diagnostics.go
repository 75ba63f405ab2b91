package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

//Severity of a risk signal
type Severity string

const (
	Critical Severity = "critical"
	High     Severity = "high"
	Medium   Severity = "medium"
	Low      Severity = "low"
)

//Rank returns an integer rank for comparison (Low=1, Critical=4)
func (s Severity) Rank() int {
	switch s {
	case Low:
		return 1
	case Medium:
		return 2
	case High:
		return 3
	case Critical:
		return 4
	default:
		return 0
	}
}

//Kind maps a severity to the finding kind: errors for critical and high, warnings otherwise
func (s Severity) Kind() Kind {
	if s.Rank() >= High.Rank() {
		return Error
	}
	return Warning
}

//ParseSeverity parses a severity string case-insensitively
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return Critical, nil
	case "high":
		return High, nil
	case "medium", "moderate":
		return Medium, nil
	case "low":
		return Low, nil
	default:
		return "", fmt.Errorf("invalid severity: %q", s)
	}
}

//Kind is the coarse classification of a finding
type Kind string

const (
	Error   Kind = "error"
	Warning Kind = "warning"
)

//Category is the risk category of a finding
type Category string

//Rule categories
const (
	ShellExecution    Category = "shell_execution"
	CodeInjection     Category = "code_injection"
	CredentialAccess  Category = "credential_access"
	NetworkSuspicious Category = "network_suspicious"
	CryptoMining      Category = "crypto_mining"
	Obfuscation       Category = "obfuscation"
	SensitivePath     Category = "sensitive_path"
	DestructiveFS     Category = "destructive_fs"
	NetworkServer     Category = "network_server"
	EnvAccess         Category = "env_access"
	MaliciousKnown    Category = "malicious_known"
	DataExfiltration  Category = "data_exfiltration"
)

//Synthetic categories raised outside the rule database
const (
	LargeFile            Category = "large_file"
	SuspiciousDependency Category = "suspicious_dependency"
	InstallScript        Category = "install_script"
	ManifestUnparsable   Category = "manifest_unparsable"
	URLReputation        Category = "url_reputation"
	FetchError           Category = "fetch_error"
	EmptyRepo            Category = "empty_repo"
	UnsupportedSource    Category = "unsupported_source"
	ScanIncomplete       Category = "scan_incomplete"
)

var ruleCategories = map[Category]struct{}{
	ShellExecution: {}, CodeInjection: {}, CredentialAccess: {}, NetworkSuspicious: {},
	CryptoMining: {}, Obfuscation: {}, SensitivePath: {}, DestructiveFS: {},
	NetworkServer: {}, EnvAccess: {}, MaliciousKnown: {}, DataExfiltration: {},
}

//IsRuleCategory indicates whether c belongs to the closed set of categories a pattern rule may carry
func (c Category) IsRuleCategory() bool {
	_, present := ruleCategories[c]
	return present
}

//IsBlind indicates whether the category signals that no code could be inspected
func (c Category) IsBlind() bool {
	return c == FetchError || c == EmptyRepo || c == UnsupportedSource
}

//IsPartial indicates whether the category signals that only some of the code was inspected
func (c Category) IsPartial() bool {
	return c == ScanIncomplete
}

//Finding describes one reported risk signal
type Finding struct {
	Kind     Kind     `json:"type"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
	//File is the path of the file this finding applies to, if any
	File string `json:"file,omitempty"`
	//Line is 1-based; zero means the finding is not attributed to a line (e.g. manifest-level findings)
	Line     int      `json:"line,omitempty"`
	Severity Severity `json:"severity"`
	//RuleID identifies the pattern rule that produced this finding; empty for synthetic findings
	RuleID string `json:"rule_id,omitempty"`
}

//NewFinding creates a finding with its kind derived from severity
func NewFinding(category Category, severity Severity, file string, line int, message string) Finding {
	return Finding{
		Kind:     severity.Kind(),
		Category: category,
		Message:  message,
		File:     file,
		Line:     line,
		Severity: severity,
	}
}

//GoString stringify
func (f Finding) GoString() string {
	b, _ := json.Marshal(f)
	return string(b)
}

func (f Finding) String() string {
	location := f.File
	if f.Line > 0 {
		location = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	if location == "" {
		return fmt.Sprintf("[%s/%s] %s", f.Severity, f.Category, f.Message)
	}
	return fmt.Sprintf("[%s/%s] %s: %s", f.Severity, f.Category, location, f.Message)
}

//Confidence reflects the degree of confidence that we have in an assessment
type Confidence int

const (
	//LowConfidence in the assessment
	LowConfidence Confidence = iota
	//MediumConfidence in the assessment
	MediumConfidence
	//HighConfidence in the assessment
	HighConfidence
)

func (conf Confidence) String() string {
	switch conf {
	case LowConfidence:
		return "Low"
	case MediumConfidence:
		return "Medium"
	case HighConfidence:
		return "High"
	default:
		return "Unknown"
	}
}

//GoString go stringify
func (conf Confidence) GoString() string {
	return conf.String()
}

//MarshalJSON makes a string representation of the confidence
func (conf Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(conf.String())
}

//UnmarshalJSON accepts either the numeric or the string representation of the confidence
func (conf *Confidence) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*conf = Confidence(n)
		return nil
	}
	var c string
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	switch c {
	case LowConfidence.String():
		*conf = LowConfidence
	case MediumConfidence.String():
		*conf = MediumConfidence
	case HighConfidence.String():
		*conf = HighConfidence
	default:
		return fmt.Errorf(`unknown Confidence type: "%s"`, c)
	}
	return nil
}

//FindingsProvider interface for finding providers
type FindingsProvider interface {
	//AddConsumers adds consumers to be notified by this provider when there is a new finding
	AddConsumers(consumers ...FindingsConsumer)
	Broadcast(finding Finding)
}

//FindingsConsumer is an interface with a callback to receive findings
type FindingsConsumer interface {
	ReceiveFinding(finding Finding)
}

//ConsumerFunc adapts an ordinary function to a FindingsConsumer
type ConsumerFunc func(Finding)

//ReceiveFinding calls f(finding)
func (f ConsumerFunc) ReceiveFinding(finding Finding) {
	f(finding)
}

//DefaultFindingsProvider a default implementation
type DefaultFindingsProvider struct {
	consumers []FindingsConsumer
}

//AddConsumers adds consumers to be notified by this provider when there is a new finding
func (fp *DefaultFindingsProvider) AddConsumers(consumers ...FindingsConsumer) {
	fp.consumers = append(fp.consumers, consumers...)
}

//Broadcast sends a finding to all registered consumers
func (fp *DefaultFindingsProvider) Broadcast(finding Finding) {
	for _, c := range fp.consumers {
		c.ReceiveFinding(finding)
	}
}
