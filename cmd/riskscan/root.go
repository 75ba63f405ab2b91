package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/adedayo/checkmate-riskscan/pkg/config"
	"github.com/adedayo/checkmate-riskscan/pkg/report"
	"github.com/adedayo/checkmate-riskscan/pkg/score"
	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

//Exit codes
const (
	exitPass  = 0
	exitError = 1
	exitFail  = 2
	exitWarn  = 3
)

//exitStatus is returned by commands whose verdict maps to a non-zero exit code
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

type options struct {
	configPath string
	debug      bool
	format     string
	strict     bool
	save       bool
	failOnWarn bool
}

type app struct {
	opts   options
	conf   *config.Config
	format report.Format
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "riskscan",
		Short: "Risk triage for untrusted code",
		Long: `riskscan inspects a bundle of files or a hosted repository for risk signals
such as shell execution, credential access, obfuscation and known-compromised
dependencies, and reports a pass/warn/fail verdict with a 0-100 score.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := util.InitLogger(a.opts.debug); err != nil {
				return err
			}
			format, err := report.ParseFormat(a.opts.format)
			if err != nil {
				return err
			}
			a.format = format
			conf, err := config.Load(a.opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				conf.Strict = a.opts.strict
			}
			a.conf = conf
			return nil
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.configPath, "config", "", fmt.Sprintf("configuration file (default %s)", config.DefaultConfigPath))
	flags.BoolVar(&a.opts.debug, "debug", false, "Enable debug logging")
	flags.StringVarP(&a.opts.format, "format", "f", "text", "output format: json, text or markdown")
	flags.BoolVar(&a.opts.strict, "strict", false, "report dependency manifests that cannot be parsed")
	flags.BoolVar(&a.opts.save, "save", false, "record the scan output in the history database")
	flags.BoolVar(&a.opts.failOnWarn, "fail-on-warn", false, "exit with status 3 on a warn verdict")

	rootCmd.AddCommand(
		newScanCmd(a),
		newScanRepoCmd(a),
		newRulesCmd(a),
		newHistoryCmd(a),
		newExclusionsCmd(a),
	)
	return rootCmd
}

func execute(ctx context.Context, args []string) int {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	defer util.Logger().Sync()

	var status exitStatus
	switch {
	case err == nil:
		return exitPass
	case errors.As(err, &status):
		return int(status)
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
}

//status maps a verdict to the process exit status
func (a *app) status(out score.Output) error {
	switch {
	case out.Verdict == score.Fail:
		return exitStatus(exitFail)
	case out.Verdict == score.Warn && a.opts.failOnWarn:
		return exitStatus(exitWarn)
	}
	return nil
}
