package diagnostics

import (
	"fmt"
	"regexp"
	"strings"
)

//ExclusionProvider implements a user-configured exclusion strategy, applied after the allowlist
type ExclusionProvider interface {
	//ShouldExclude determines whether the finding should be dropped, given the raw text of the line it matched on
	ShouldExclude(finding Finding, line string) bool
	//ShouldExcludePath determines whether the file at path should not be scanned at all
	ShouldExcludePath(path string) bool
}

// ExcludeDefinition describes exclude rules
type ExcludeDefinition struct {
	//Regular expressions of file paths that should not be scanned
	PathExclusionRegExs []string `yaml:"PathExclusionRegExs,omitempty"`
	//Rule IDs whose findings are ignored everywhere
	ExcludedRuleIDs []string `yaml:"ExcludedRuleIDs,omitempty"`
	//Categories whose findings are ignored everywhere
	ExcludedCategories []Category `yaml:"ExcludedCategories,omitempty"`
	//Regular expressions of line content; findings on matching lines are ignored
	GloballyExcludedRegExs []string `yaml:"GloballyExcludedRegExs,omitempty"`
	//path_regex -> rule IDs ignored in files whose path matches
	PathRegexExcludedRuleIDs map[string][]string `yaml:"PathRegexExcludedRuleIDs,omitempty"`
}

//GenerateSampleExclusion generates a sample exclusion YAML file content with descriptions
func GenerateSampleExclusion() string {
	return `# Sample exclusion file for riskscan. Exclusions apply after the built-in
# comment and allowlist filters and can only remove findings, never add them.

# Use PathExclusionRegExs to skip files whose paths match
# For example (uncomment the next three lines):
# PathExclusionRegExs:
#     - .*/vendor/.* # do not scan vendored code
#     - .*[.]snap # ignore snapshot files

# Use ExcludedRuleIDs to ignore a rule everywhere
# For example (uncomment the next two lines):
# ExcludedRuleIDs:
#     - network-server-listen

# Use ExcludedCategories to ignore whole categories (credential_access and malicious_known are never ignored)
# For example (uncomment the next two lines):
# ExcludedCategories:
#     - env_access

# Use GloballyExcludedRegExs to ignore findings on lines whose content matches
# For example (uncomment the next two lines):
# GloballyExcludedRegExs:
#     - .*nosec.* # ignore lines annotated with nosec

# PathRegexExcludedRuleIDs ignores the listed rules only in files whose path matches
# For example (uncomment the next three lines):
# PathRegexExcludedRuleIDs:
#     .*/scripts/.*:
#         - shell-child-process
`
}

//defaultExclusionProvider contains various mechanisms for excluding false positives
type defaultExclusionProvider struct {
	*ExcludeDefinition
	ruleIDs                          map[string]struct{}
	categories                       map[Category]struct{}
	globallyExcludedRegExsCompiled   []*regexp.Regexp
	pathExclusionRegExsCompiled      []*regexp.Regexp
	pathRegexExcludedRuleIDsCompiled map[*regexp.Regexp]map[string]struct{}
}

//CompileExcludes returns a ExclusionProvider with the regular expressions already compiled
func CompileExcludes(exclude *ExcludeDefinition) (ExclusionProvider, error) {
	ep := defaultExclusionProvider{
		ExcludeDefinition: exclude,
		ruleIDs:           make(map[string]struct{}),
		categories:        make(map[Category]struct{}),
	}
	for _, id := range exclude.ExcludedRuleIDs {
		ep.ruleIDs[strings.TrimSpace(id)] = struct{}{}
	}
	for _, c := range exclude.ExcludedCategories {
		if c == CredentialAccess || c == MaliciousKnown {
			return nil, fmt.Errorf("category %s cannot be excluded", c)
		}
		ep.categories[c] = struct{}{}
	}
	if err := ep.compileRegExs(); err != nil {
		return nil, err
	}
	return &ep, nil
}

//MakeEmptyExcludes creates an empty default exclusion list
func MakeEmptyExcludes() ExclusionProvider {
	ep, _ := CompileExcludes(&ExcludeDefinition{})
	return ep
}

//compileRegExs ensures the regular expressions defined are compiled before use
func (ep *defaultExclusionProvider) compileRegExs() (err error) {
	if ep.globallyExcludedRegExsCompiled, err = compileAll(ep.GloballyExcludedRegExs); err != nil {
		return
	}
	if ep.pathExclusionRegExsCompiled, err = compileAll(ep.PathExclusionRegExs); err != nil {
		return
	}
	ep.pathRegexExcludedRuleIDsCompiled = make(map[*regexp.Regexp]map[string]struct{})
	for p, ids := range ep.PathRegexExcludedRuleIDs {
		pre, err := regexp.Compile(p)
		if err != nil {
			return err
		}
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		ep.pathRegexExcludedRuleIDsCompiled[pre] = set
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, s := range patterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func (ep *defaultExclusionProvider) ShouldExclude(finding Finding, line string) bool {
	if _, present := ep.ruleIDs[finding.RuleID]; present && finding.RuleID != "" {
		return true
	}
	if _, present := ep.categories[finding.Category]; present {
		return true
	}
	if ep.ShouldExcludePath(finding.File) {
		return true
	}
	for _, rx := range ep.globallyExcludedRegExsCompiled {
		if rx.MatchString(line) {
			return true
		}
	}
	for prx, ids := range ep.pathRegexExcludedRuleIDsCompiled {
		if prx.MatchString(finding.File) {
			if _, present := ids[finding.RuleID]; present {
				return true
			}
		}
	}
	return false
}

func (ep *defaultExclusionProvider) ShouldExcludePath(path string) bool {
	if path == "" {
		return false
	}
	for _, prx := range ep.pathExclusionRegExsCompiled {
		if prx.MatchString(path) {
			return true
		}
	}
	return false
}
