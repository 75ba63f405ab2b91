package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

//MaxExcerpt is the maximum number of characters of matched text carried into a finding message
const MaxExcerpt = 60

var (
	//ErrInvalidRule is returned when a rule definition cannot be compiled
	ErrInvalidRule = errors.New("invalid rule")
	//ErrDuplicateRule is returned when two rules share an ID
	ErrDuplicateRule = errors.New("duplicate rule id")
)

//Definition is the declarative form of a pattern rule, as found in rule packs
type Definition struct {
	ID            string `yaml:"id" json:"id"`
	Pattern       string `yaml:"pattern" json:"pattern"`
	Literal       bool   `yaml:"literal,omitempty" json:"literal,omitempty"`
	Category      string `yaml:"category" json:"category"`
	Severity      string `yaml:"severity" json:"severity"`
	Message       string `yaml:"message" json:"message"`
	SkipIfComment bool   `yaml:"skip_if_comment,omitempty" json:"skip_if_comment,omitempty"`
	Contextual    bool   `yaml:"contextual,omitempty" json:"contextual,omitempty"`
}

//Rule is a compiled, immutable pattern rule
type Rule struct {
	ID       string
	Pattern  string
	Literal  bool
	Category diagnostics.Category
	Severity diagnostics.Severity
	//Message may contain the {match} placeholder, otherwise the excerpt is appended
	Message       string
	SkipIfComment bool
	//Contextual rules may be suppressed by the allowlist in low-risk contexts
	Contextual bool
	re         *regexp.Regexp
}

//Compile turns a definition into a rule. Literal patterns are matched case-insensitively.
func Compile(def Definition) (*Rule, error) {
	if strings.TrimSpace(def.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidRule)
	}
	if def.Pattern == "" {
		return nil, fmt.Errorf("%w %s: empty pattern", ErrInvalidRule, def.ID)
	}
	category := diagnostics.Category(def.Category)
	if !category.IsRuleCategory() {
		return nil, fmt.Errorf("%w %s: unknown category %q", ErrInvalidRule, def.ID, def.Category)
	}
	severity, err := diagnostics.ParseSeverity(def.Severity)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidRule, def.ID, err)
	}
	expr := def.Pattern
	if def.Literal {
		expr = "(?i)" + regexp.QuoteMeta(def.Pattern)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidRule, def.ID, err)
	}
	return &Rule{
		ID:            def.ID,
		Pattern:       def.Pattern,
		Literal:       def.Literal,
		Category:      category,
		Severity:      severity,
		Message:       def.Message,
		SkipIfComment: def.SkipIfComment,
		Contextual:    def.Contextual,
		re:            re,
	}, nil
}

//MustCompile is like Compile but panics on error. Only used for the built-in rules.
func MustCompile(def Definition) *Rule {
	r, err := Compile(def)
	if err != nil {
		panic(err)
	}
	return r
}

//Match returns the first substring of line matched by the rule
func (r *Rule) Match(line string) (string, bool) {
	loc := r.re.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	return line[loc[0]:loc[1]], true
}

//Describe renders the rule message for a matched excerpt
func (r *Rule) Describe(match string) string {
	excerpt := Excerpt(match)
	if strings.Contains(r.Message, "{match}") {
		return strings.ReplaceAll(r.Message, "{match}", excerpt)
	}
	if r.Message == "" {
		return excerpt
	}
	return r.Message + ": " + excerpt
}

//Definition returns the declarative form of the rule
func (r *Rule) Definition() Definition {
	return Definition{
		ID:            r.ID,
		Pattern:       r.Pattern,
		Literal:       r.Literal,
		Category:      string(r.Category),
		Severity:      string(r.Severity),
		Message:       r.Message,
		SkipIfComment: r.SkipIfComment,
		Contextual:    r.Contextual,
	}
}

//Excerpt truncates s to at most MaxExcerpt characters
func Excerpt(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxExcerpt {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxExcerpt])
}

//Database is an ordered, read-only collection of rules. Order determines the order of findings within a file.
type Database struct {
	rules []*Rule
	index map[string]int
}

//NewDatabase builds a database from rules, keeping their order
func NewDatabase(rules ...*Rule) (*Database, error) {
	db := &Database{
		rules: make([]*Rule, 0, len(rules)),
		index: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if _, present := db.index[r.ID]; present {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		db.index[r.ID] = len(db.rules)
		db.rules = append(db.rules, r)
	}
	return db, nil
}

//Rules returns the rules in order. The slice must not be modified.
func (db *Database) Rules() []*Rule {
	return db.rules
}

//Len is the number of rules
func (db *Database) Len() int {
	return len(db.rules)
}

//Get looks up a rule by ID
func (db *Database) Get(id string) (*Rule, bool) {
	i, present := db.index[id]
	if !present {
		return nil, false
	}
	return db.rules[i], true
}

//Filter returns a new database holding the rules for which keep returns true, in the same order
func (db *Database) Filter(keep func(*Rule) bool) *Database {
	out := &Database{index: make(map[string]int)}
	for _, r := range db.rules {
		if keep(r) {
			out.index[r.ID] = len(out.rules)
			out.rules = append(out.rules, r)
		}
	}
	return out
}

//DocumentationSubset returns the rules applied to documentation and data files: critical credential leaks only
func (db *Database) DocumentationSubset() *Database {
	return db.Filter(func(r *Rule) bool {
		return r.Category == diagnostics.CredentialAccess && r.Severity == diagnostics.Critical
	})
}

//Extend returns a new database with the extra rules appended after the existing ones
func (db *Database) Extend(extra ...*Rule) (*Database, error) {
	all := make([]*Rule, 0, len(db.rules)+len(extra))
	all = append(all, db.rules...)
	all = append(all, extra...)
	return NewDatabase(all...)
}
