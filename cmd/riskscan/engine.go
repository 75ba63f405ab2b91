package main

import (
	"github.com/adedayo/checkmate-riskscan/pkg/config"
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
	gitutils "github.com/adedayo/checkmate-riskscan/pkg/git"
	"github.com/adedayo/checkmate-riskscan/pkg/history"
	"github.com/adedayo/checkmate-riskscan/pkg/manifest"
	"github.com/adedayo/checkmate-riskscan/pkg/report"
	"github.com/adedayo/checkmate-riskscan/pkg/reputation"
	"github.com/adedayo/checkmate-riskscan/pkg/rules"
	"github.com/adedayo/checkmate-riskscan/pkg/scanner"
	"github.com/adedayo/checkmate-riskscan/pkg/score"
	"github.com/adedayo/checkmate-riskscan/pkg/triage"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

//database is the built-in rule database extended with the configured rule packs
func database(conf *config.Config) (*rules.Database, error) {
	return rules.LoadPacks(rules.DefaultDatabase(), conf.RulePacks...)
}

func buildEngine(conf *config.Config) (*triage.Engine, error) {
	db, err := database(conf)
	if err != nil {
		return nil, err
	}

	scanOpts := []scanner.Option{scanner.WithMaxFileSize(conf.MaxFileSize)}
	if conf.Exclusions != nil {
		exclusions, err := diagnostics.CompileExcludes(conf.Exclusions)
		if err != nil {
			return nil, err
		}
		scanOpts = append(scanOpts, scanner.WithExclusions(exclusions))
	}
	if conf.Allowlist != nil {
		allowlist, err := diagnostics.CompileAllowlist(conf.Allowlist)
		if err != nil {
			return nil, err
		}
		scanOpts = append(scanOpts, scanner.WithAllowlist(allowlist))
	}

	api := gitutils.NewAPIFetcher(
		gitutils.WithEndPoints(conf.GitHub.APIEndPoint, conf.GitHub.RawEndPoint),
		gitutils.WithToken(conf.GitHub.Token),
		gitutils.WithLimits(conf.Fetch),
		gitutils.WithRateLimit(conf.GitHub.RequestsPerSecond, conf.Fetch.BatchSize),
	)
	clone := gitutils.NewCloneFetcher(nil)
	clone.Limits = conf.Fetch

	log := util.Logger()
	return triage.New(db,
		triage.WithScanner(scanner.New(db, scanOpts...)),
		triage.WithAnalyzer(manifest.NewAnalyzer(manifest.Strict(conf.Strict))),
		triage.WithFetcher(gitutils.HostRouter{
			Hosts:    map[string]gitutils.Fetcher{"github.com": api},
			Fallback: clone,
		}),
		triage.WithReputation(reputation.NewClient(conf.Reputation.APIKey, conf.Reputation.EndPoint, conf.Reputation.Wait),
			conf.Reputation.Timeout),
		triage.WithDeadline(conf.Deadline),
		triage.WithProgress(func(p diagnostics.Progress) {
			log.Debugf("%s: scanned %d/%d %s", p.Source, p.Position, p.Total, p.CurrentFile)
		}),
	), nil
}

//emit renders the output, records it when asked, and maps the verdict to an exit status
func (a *app) emit(source string, out score.Output) error {
	if err := report.Write(a.stdout, a.format, source, out); err != nil {
		return err
	}
	if a.opts.save {
		store, err := history.NewDBStore(a.conf.HistoryDir)
		if err != nil {
			return err
		}
		defer store.Close()
		record, err := store.Save(source, out)
		if err != nil {
			return err
		}
		util.Logger().Infof("saved scan %s of %s", record.ID, source)
	}
	return a.status(out)
}
