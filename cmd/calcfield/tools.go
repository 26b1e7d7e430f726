package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/calcfield/pkg/expr"
	"github.com/lemonberrylabs/calcfield/pkg/script"
	"github.com/lemonberrylabs/calcfield/pkg/session"
	"github.com/lemonberrylabs/calcfield/pkg/tui"
	"github.com/lemonberrylabs/calcfield/pkg/types"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Sanitize, tokenize and evaluate one expression",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>...",
	Short: "Replay keystroke scripts and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReplay,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run an interactive calculator in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	replayCmd.Flags().BoolP("verbose", "v", false, "Print the final state of every script")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	raw := args[0]
	clean, v, err := expr.Evaluator{Policy: opts.Policy}.Calculate(raw)
	if clean != raw {
		fmt.Fprintf(out, "%s %s\n", color.YellowString("sanitized:"), clean)
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("%s (%v)", opts.ErrorIndicator, err))
		return err
	}
	fmt.Fprintln(out, types.FormatNumber(v))
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := script.ParseFile(path)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", color.RedString("ERROR"), path, err)
			failed++
			continue
		}

		report := script.Run(sc, session.New(opts))
		if report.Passed() {
			fmt.Fprintf(out, "%s %s (%d steps)\n", color.GreenString("PASS"), sc.Name, report.Steps)
		} else {
			fmt.Fprintf(out, "%s %s\n", color.RedString("FAIL"), sc.Name)
			for _, f := range report.Failures {
				fmt.Fprintf(out, "    %s\n", f)
			}
			failed++
		}
		if verbose {
			fmt.Fprintf(out, "    final: input=%q display=%q\n", report.Final.Input, report.Final.Display)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d script(s) failed", failed, len(args))
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}
	if err := tui.Run(session.New(opts), cfg.Calculator.ErrorFlash); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("tui: %v", err))
		return err
	}
	return nil
}
