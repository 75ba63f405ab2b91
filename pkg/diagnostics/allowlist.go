package diagnostics

import (
	"fmt"
	"sort"

	common "github.com/adedayo/checkmate-riskscan/pkg"
)

//AllowlistProvider implements a context-based suppression strategy for categories that are prone to false positives
type AllowlistProvider interface {
	//Suppress determines whether the finding should be dropped, given the path of its source file
	//and the raw text of the line it matched on. It never alters the finding.
	Suppress(finding Finding, path, line string) bool
	//SuppressedIn lists the categories suppressed within a context class
	SuppressedIn(context ContextClass) []Category
}

//ContextClass is a kind of low-risk context in which some categories are frequently benign
type ContextClass string

const (
	CommentContext       ContextClass = "comment"
	TestContext          ContextClass = "test"
	DocumentationContext ContextClass = "documentation"
)

// AllowlistDefinition describes the categories suppressed per context class
type AllowlistDefinition struct {
	//Categories suppressed when the matched line is itself a comment or documentation marker
	Comment []Category `yaml:"Comment,omitempty"`
	//Categories suppressed when the file follows a test naming convention
	Test []Category `yaml:"Test,omitempty"`
	//Categories suppressed when the file is documentation
	Documentation []Category `yaml:"Documentation,omitempty"`
}

//DefaultAllowlistDefinition returns the built-in false-positive-prone categories.
//Credential access and known-malicious terms are never suppressed.
func DefaultAllowlistDefinition() AllowlistDefinition {
	return AllowlistDefinition{
		Comment: []Category{
			ShellExecution, CodeInjection, NetworkSuspicious, NetworkServer,
			EnvAccess, SensitivePath, DestructiveFS,
		},
		Test: []Category{
			ShellExecution, NetworkSuspicious, NetworkServer, EnvAccess,
			SensitivePath, DestructiveFS,
		},
		Documentation: []Category{
			ShellExecution, CodeInjection, NetworkSuspicious, NetworkServer,
			EnvAccess, SensitivePath, DestructiveFS,
		},
	}
}

type defaultAllowlistProvider struct {
	classes map[ContextClass]map[Category]struct{}
}

//CompileAllowlist returns an AllowlistProvider for the definition, rejecting categories outside the rule set
func CompileAllowlist(def *AllowlistDefinition) (AllowlistProvider, error) {
	al := defaultAllowlistProvider{
		classes: make(map[ContextClass]map[Category]struct{}),
	}
	for class, categories := range map[ContextClass][]Category{
		CommentContext:       def.Comment,
		TestContext:          def.Test,
		DocumentationContext: def.Documentation,
	} {
		set := make(map[Category]struct{}, len(categories))
		for _, c := range categories {
			if !c.IsRuleCategory() {
				return nil, fmt.Errorf("allowlist %s: unknown category %q", class, c)
			}
			set[c] = struct{}{}
		}
		al.classes[class] = set
	}
	return &al, nil
}

//DefaultAllowlist returns the built-in allowlist
func DefaultAllowlist() AllowlistProvider {
	def := DefaultAllowlistDefinition()
	al, err := CompileAllowlist(&def)
	if err != nil {
		panic(err)
	}
	return al
}

//MakeEmptyAllowlist creates an allowlist that never suppresses anything
func MakeEmptyAllowlist() AllowlistProvider {
	return &defaultAllowlistProvider{
		classes: make(map[ContextClass]map[Category]struct{}),
	}
}

func (al *defaultAllowlistProvider) Suppress(finding Finding, path, line string) bool {
	if common.IsCommentLine(path, line) && al.suppresses(CommentContext, finding.Category) {
		return true
	}
	if common.IsTestFile(path) && al.suppresses(TestContext, finding.Category) {
		return true
	}
	if common.IsDocumentationFile(path) && al.suppresses(DocumentationContext, finding.Category) {
		return true
	}
	return false
}

func (al *defaultAllowlistProvider) SuppressedIn(context ContextClass) []Category {
	out := []Category{}
	for c := range al.classes[context] {
		out = append(out, c)
	}
	sortCategories(out)
	return out
}

func (al *defaultAllowlistProvider) suppresses(context ContextClass, c Category) bool {
	_, present := al.classes[context][c]
	return present
}

func sortCategories(cs []Category) {
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
}
