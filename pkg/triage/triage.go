package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	common "github.com/adedayo/checkmate-riskscan/pkg"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	gitutils "github.com/adedayo/checkmate-riskscan/pkg/git"
	"github.com/adedayo/checkmate-riskscan/pkg/manifest"
	"github.com/adedayo/checkmate-riskscan/pkg/reputation"
	"github.com/adedayo/checkmate-riskscan/pkg/rules"
	"github.com/adedayo/checkmate-riskscan/pkg/scanner"
	"github.com/adedayo/checkmate-riskscan/pkg/score"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

const (
	DefaultDeadline          = 2 * time.Minute
	DefaultReputationTimeout = 30 * time.Second
)

//Engine ties scanning, manifest analysis, fetching and reputation together.
//It never returns an error: every outcome is folded into a complete score.Output.
type Engine struct {
	scanner           *scanner.Scanner
	analyzer          *manifest.Analyzer
	fetcher           gitutils.Fetcher
	reputation        *reputation.Client
	reputationTimeout time.Duration
	deadline          time.Duration
	provider          diagnostics.DefaultFindingsProvider
	progress          func(diagnostics.Progress)
}

//Option configures an Engine
type Option func(*Engine)

//WithScanner replaces the line scanner
func WithScanner(s *scanner.Scanner) Option {
	return func(e *Engine) {
		e.scanner = s
	}
}

//WithAnalyzer replaces the manifest analyzer
func WithAnalyzer(a *manifest.Analyzer) Option {
	return func(e *Engine) {
		e.analyzer = a
	}
}

//WithFetcher replaces the repository fetcher
func WithFetcher(f gitutils.Fetcher) Option {
	return func(e *Engine) {
		e.fetcher = f
	}
}

//WithReputation enables the reputation lookup for repository scans
func WithReputation(c *reputation.Client, timeout time.Duration) Option {
	return func(e *Engine) {
		e.reputation = c
		if timeout > 0 {
			e.reputationTimeout = timeout
		}
	}
}

//WithDeadline bounds a whole repository fetch and scan
func WithDeadline(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.deadline = d
		}
	}
}

//WithConsumers registers consumers that receive every finding of a scan, in output order
func WithConsumers(consumers ...diagnostics.FindingsConsumer) Option {
	return func(e *Engine) {
		e.provider.AddConsumers(consumers...)
	}
}

//WithProgress registers a progress callback
func WithProgress(fn func(diagnostics.Progress)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

//New creates an engine over db. By default github.com is fetched through its REST API and other hosts are cloned.
func New(db *rules.Database, opts ...Option) *Engine {
	e := &Engine{
		scanner:  scanner.New(db),
		analyzer: manifest.NewAnalyzer(),
		fetcher: gitutils.HostRouter{
			Hosts:    map[string]gitutils.Fetcher{"github.com": gitutils.NewAPIFetcher()},
			Fallback: gitutils.NewCloneFetcher(nil),
		},
		reputationTimeout: DefaultReputationTimeout,
		deadline:          DefaultDeadline,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

//ScanFiles scans an uploaded bundle of files
func (e *Engine) ScanFiles(ctx context.Context, files []common.File) score.Output {
	findings, scanned, cancelled := e.collect(ctx, common.UploadSource.String(), files)
	if cancelled > 0 {
		findings = append(findings, incomplete(cancelled, len(files)))
	}
	return e.finish(score.Aggregate(findings, scanned))
}

//Scan dispatches a scan request by source type
func (e *Engine) Scan(ctx context.Context, req common.ScanRequest) score.Output {
	if req.Type == common.RepositorySource {
		return e.ScanRepository(ctx, req.Repository)
	}
	return e.ScanFiles(ctx, req.Files)
}

//ScanRepository fetches and scans a hosted repository, overlapping the reputation lookup with the fetch and scan
func (e *Engine) ScanRepository(ctx context.Context, rawURL string) score.Output {
	log := util.Logger()
	ref, err := gitutils.ParseRepositoryURL(rawURL)
	if err != nil {
		return e.finish(score.Blind(diagnostics.UnsupportedSource, diagnostics.Medium,
			fmt.Sprintf("Not a supported repository URL: %s", rawURL)))
	}

	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	reputationFindings := e.lookup(ctx, fmt.Sprintf("https://%s/%s/%s", ref.Host, ref.Owner, ref.Name))

	var findings []diagnostics.Finding
	scanned := 0
	snap, err := e.fetcher.Fetch(ctx, ref)
	switch {
	case errors.Is(err, gitutils.ErrEmptyRepository):
		findings = []diagnostics.Finding{diagnostics.NewFinding(diagnostics.EmptyRepo, diagnostics.High, "", 0,
			fmt.Sprintf("No reviewable source files were found in %s", ref))}
	case err != nil:
		log.Debugf("fetch of %s failed: %v", ref, err)
		findings = []diagnostics.Finding{diagnostics.NewFinding(diagnostics.FetchError, diagnostics.Critical, "", 0,
			fmt.Sprintf("Repository %s could not be fetched", ref))}
	default:
		if len(snap.Omitted) > 0 {
			log.Warnf("%d files of %s could not be retrieved", len(snap.Omitted), ref)
		}
		if snap.Truncated {
			log.Infof("%s has more files than the fetch limit; scanning the first %d", ref, len(snap.Files))
		}
		var cancelled int
		findings, scanned, cancelled = e.collect(ctx, ref.String(), snap.Files)
		switch {
		case cancelled > 0 && scanned == 0:
			log.Warnf("deadline reached before any file of %s was scanned", ref)
			findings = append([]diagnostics.Finding{diagnostics.NewFinding(diagnostics.FetchError, diagnostics.Critical, "", 0,
				fmt.Sprintf("Repository %s could not be scanned before the deadline", ref))}, findings...)
		case cancelled > 0:
			findings = append(findings, incomplete(cancelled, len(snap.Files)))
		}
	}

	findings = append(findings, <-reputationFindings...)
	return e.finish(score.Aggregate(findings, scanned))
}

//lookup starts the reputation lookup in its own goroutine; failures yield no findings
func (e *Engine) lookup(ctx context.Context, target string) <-chan []diagnostics.Finding {
	out := make(chan []diagnostics.Finding, 1)
	if !e.reputation.Enabled() {
		out <- nil
		return out
	}
	go func() {
		rctx, cancel := context.WithTimeout(ctx, e.reputationTimeout)
		defer cancel()
		v, err := e.reputation.Lookup(rctx, target)
		if err != nil {
			util.Logger().Debugf("reputation lookup of %s: %v", target, err)
			out <- nil
			return
		}
		out <- reputation.Findings(v)
	}()
	return out
}

//collect scans files and analyses manifests. Findings are ordered by file, then manifest findings follow.
//It also counts the files scanned and those not reached before ctx was done.
func (e *Engine) collect(ctx context.Context, source string, files []common.File) (findings []diagnostics.Finding, scanned, cancelled int) {
	var progress func(diagnostics.Progress)
	if e.progress != nil {
		progress = func(p diagnostics.Progress) {
			p.Source = source
			e.progress(p)
		}
	}
	findings = []diagnostics.Finding{}
	for _, r := range e.scanner.ScanFiles(ctx, files, progress) {
		switch {
		case r.Scanned():
			scanned++
		case r.Skipped == scanner.Cancelled:
			cancelled++
		}
		findings = append(findings, r.Findings...)
	}
	findings = append(findings, e.analyzer.Analyze(files)...)
	return findings, scanned, cancelled
}

func incomplete(cancelled, total int) diagnostics.Finding {
	return diagnostics.NewFinding(diagnostics.ScanIncomplete, diagnostics.High, "", 0,
		fmt.Sprintf("Scan stopped before completion: %d of %d files were not inspected", cancelled, total))
}

func (e *Engine) finish(out score.Output) score.Output {
	for _, f := range out.Findings {
		e.provider.Broadcast(f)
	}
	return out
}
