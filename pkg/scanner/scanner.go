package scanner

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	"github.com/adedayo/checkmate-riskscan/pkg/rules"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

//DefaultMaxFileSize is the size above which a file is reported rather than scanned
const DefaultMaxFileSize = 500 * 1024

//SkipReason explains why a file was not scanned
type SkipReason string

const (
	NotSkipped SkipReason = ""
	NonSource  SkipReason = "non-source"
	Binary     SkipReason = "binary"
	TooLarge   SkipReason = "too-large"
	Excluded   SkipReason = "excluded"
	Cancelled  SkipReason = "cancelled"
)

//FileResult is the outcome of scanning one file
type FileResult struct {
	Path     string
	Findings []diagnostics.Finding
	Skipped  SkipReason
}

//Scanned indicates whether the file's content was actually inspected
func (fr FileResult) Scanned() bool {
	return fr.Skipped == NotSkipped
}

//Scanner runs a rule database over files and refines matches through a pipeline of stages
type Scanner struct {
	db          *rules.Database
	docs        *rules.Database
	stages      []Stage
	exclusions  diagnostics.ExclusionProvider
	maxFileSize int
	workers     int
	heuristics  bool
}

//Option configures a Scanner
type Option func(*Scanner)

//WithAllowlist replaces the built-in allowlist
func WithAllowlist(al diagnostics.AllowlistProvider) Option {
	return func(s *Scanner) {
		s.stages[1] = AllowlistStage(al)
	}
}

//WithExclusions appends a user exclusion stage and skips excluded paths entirely
func WithExclusions(ep diagnostics.ExclusionProvider) Option {
	return func(s *Scanner) {
		s.exclusions = ep
		s.stages = append(s.stages, ExclusionStage(ep))
	}
}

//WithStages appends extra refinement stages after the built-in ones
func WithStages(stages ...Stage) Option {
	return func(s *Scanner) {
		s.stages = append(s.stages, stages...)
	}
}

//WithMaxFileSize sets the size in bytes above which files are not scanned
func WithMaxFileSize(size int) Option {
	return func(s *Scanner) {
		if size > 0 {
			s.maxFileSize = size
		}
	}
}

//WithWorkers bounds the number of files scanned concurrently
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

//WithoutHeuristics disables the minification and entropy checks
func WithoutHeuristics() Option {
	return func(s *Scanner) {
		s.heuristics = false
	}
}

//New creates a scanner over db with the comment and allowlist stages in place
func New(db *rules.Database, opts ...Option) *Scanner {
	s := &Scanner{
		db:          db,
		docs:        db.DocumentationSubset(),
		stages:      []Stage{CommentStage(), AllowlistStage(diagnostics.DefaultAllowlist())},
		maxFileSize: DefaultMaxFileSize,
		workers:     runtime.GOMAXPROCS(0),
		heuristics:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

//ScanFile scans a single file with the default pipeline and returns its findings
func ScanFile(db *rules.Database, path string, content []byte) []diagnostics.Finding {
	return New(db, WithoutHeuristics()).Scan(common.File{Path: path, Content: content}).Findings
}

//Scan inspects one file. Findings are ordered by rule, then by line.
func (s *Scanner) Scan(file common.File) FileResult {
	result := FileResult{Path: file.Path, Findings: []diagnostics.Finding{}}
	log := util.Logger()

	if s.exclusions != nil && s.exclusions.ShouldExcludePath(file.Path) {
		result.Skipped = Excluded
		return result
	}
	if common.IsNonSourceFile(file.Path) {
		result.Skipped = NonSource
		return result
	}
	if file.Size() > s.maxFileSize {
		log.Debugf("not scanning %s: %d bytes", file.Path, file.Size())
		result.Skipped = TooLarge
		result.Findings = append(result.Findings, diagnostics.NewFinding(diagnostics.LargeFile, diagnostics.Medium, file.Path, 0,
			fmt.Sprintf("File is too large to scan (%d KB)", file.Size()/1024)))
		return result
	}
	if common.IsBinary(file.Content) {
		result.Skipped = Binary
		return result
	}

	db := s.db
	if common.IsDocumentationFile(file.Path) {
		db = s.docs
	}

	lines := strings.Split(string(file.Content), "\n")
	for i, l := range lines {
		lines[i] = norm.NFKC.String(strings.TrimSuffix(l, "\r"))
	}

	for _, rule := range db.Rules() {
		for i, line := range lines {
			match, ok := rule.Match(line)
			if !ok {
				continue
			}
			f := diagnostics.NewFinding(rule.Category, rule.Severity, file.Path, i+1, rule.Describe(match))
			f.RuleID = rule.ID
			if s.keep(Candidate{Finding: f, Rule: rule, Line: line}) {
				result.Findings = append(result.Findings, f)
			}
		}
	}

	if s.heuristics {
		for _, f := range Heuristics(file.Path, file.Content) {
			if s.exclusions == nil || !s.exclusions.ShouldExclude(f, "") {
				result.Findings = append(result.Findings, f)
			}
		}
	}
	return result
}

func (s *Scanner) keep(c Candidate) bool {
	for _, stage := range s.stages {
		if !stage.Keep(c) {
			return false
		}
	}
	return true
}

//ScanFiles scans files concurrently. Results are returned in the order of the input files.
//Files not reached before ctx is done are marked as cancelled. progress may be called from several goroutines.
func (s *Scanner) ScanFiles(ctx context.Context, files []common.File, progress func(diagnostics.Progress)) []FileResult {
	results := make([]FileResult, len(files))
	var done int64
	total := int64(len(files))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i := range files {
		i := i
		eg.Go(func() error {
			if ctx.Err() != nil {
				results[i] = FileResult{Path: files[i].Path, Findings: []diagnostics.Finding{}, Skipped: Cancelled}
				return nil
			}
			results[i] = s.Scan(files[i])
			position := atomic.AddInt64(&done, 1)
			if progress != nil {
				progress(diagnostics.Progress{
					Position:    position,
					Total:       total,
					CurrentFile: files[i].Path,
				})
			}
			return nil
		})
	}
	eg.Wait()
	return results
}
