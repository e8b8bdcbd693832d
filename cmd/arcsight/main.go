// Package main provides the arcsight CLI.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"arcsight/attribute"
	"arcsight/config"
	"arcsight/engine"
	"arcsight/envelope"
	"arcsight/internal/comment"
	"arcsight/internal/dirio"
	"arcsight/internal/fixture"
	"arcsight/internal/gitio"
	"arcsight/internal/ignore"
	"arcsight/internal/report"
	"arcsight/safety"
	"arcsight/snapshot"
)

// Version is the current arcsight CLI version.
var Version = "1.0.0"

const (
	fixtureFileName = "input.fixture"
	goldenFileName  = "envelope.json"
	compareRuns     = 3
)

var rootCmd = &cobra.Command{
	Use:     "arcsight",
	Short:   "ArcSight - deterministic import-cycle analysis for TS/JS pull requests",
	Long:    `ArcSight builds the import graph of a repository snapshot, detects dependency cycles, attributes new cycles to the PR diff, and emits a signed analysis envelope.`,
	Version: Version,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a repository for PR-introduced import cycles",
	Long: `Analyze a repository and print the signed envelope as canonical JSON.

With --head-rev the snapshot is read from Git; adding --base-rev enables
diff-based attribution against the base revision. Without --head-rev the
working directory is snapshotted directly and the analysis degrades to
structure-only reporting (no diff, nothing attributable).

Examples:
  arcsight analyze . --head-rev HEAD --base-rev origin/main --pr 42 --db arcsight.db
  arcsight analyze ./repo --config arcsight.yaml
  arcsight analyze . --head-rev HEAD --base-rev main --comment`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var replayCmd = &cobra.Command{
	Use:   "replay <fixture>",
	Short: "Re-run an analysis from a recorded fixture pack",
	Long: `Replay a fixture pack and print the resulting envelope.

Fixtures capture the complete analysis input, so a replay on any machine
produces a byte-identical envelope. Replays run without a clock: the
timeout budget never trips.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Check recorded fixtures against their golden envelopes",
	Long: `Run every fixture under the golden directory and compare the output
against the stored envelope.

Each case directory holds input.fixture and envelope.json. Every fixture
runs three times; diverging signatures across runs are reported as a
determinism mismatch. Exits non-zero when any case fails.`,
	RunE: runCompare,
}

var dumpEnvelopeCmd = &cobra.Command{
	Use:   "dump-envelope <revision>",
	Short: "Print an archived envelope from the report database",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpEnvelope,
}

var (
	analyzeBaseRev     string
	analyzeHeadRev     string
	analyzeConfigPath  string
	analyzeDBPath      string
	analyzePR          string
	analyzeComment     bool
	analyzeSaveFixture string
	compareGoldenDir   string
	dumpDBPath         string
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) == 1 {
		repoPath = args[0]
	}

	cfg, cfgYAML, err := loadConfig(analyzeConfigPath)
	if err != nil {
		return err
	}

	in := engine.Input{
		Identity: map[string]string{},
		Config:   cfg,
	}

	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolving repo path: %w", err)
	}
	in.Identity["repo"] = filepath.Base(absPath)
	if analyzePR != "" {
		in.Identity["pr"] = analyzePR
	}

	if analyzeHeadRev != "" {
		repo, err := gitio.Open(repoPath)
		if err != nil {
			return err
		}
		headHash, err := repo.ResolveHash(analyzeHeadRev)
		if err != nil {
			return err
		}
		in.Identity["head"] = headHash
		in.Head, err = repo.SnapshotAt(analyzeHeadRev)
		if err != nil {
			return err
		}
		if analyzeBaseRev != "" {
			baseHash, err := repo.ResolveHash(analyzeBaseRev)
			if err != nil {
				return err
			}
			in.Identity["base"] = baseHash
			in.Base, err = repo.SnapshotAt(analyzeBaseRev)
			if err != nil {
				return err
			}
			in.Diff, err = repo.PRDiff(analyzeBaseRev, analyzeHeadRev)
			if err != nil {
				return err
			}
		}
	} else {
		in.Head, err = collectDir(repoPath)
		if err != nil {
			return err
		}
	}

	var db *report.DB
	if analyzeDBPath != "" {
		db, err = report.Open(analyzeDBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if analyzePR != "" {
			in.Prior, err = db.ListReported(analyzePR)
			if err != nil {
				return err
			}
		}
	}

	if analyzeSaveFixture != "" {
		if err := fixture.WriteFile(analyzeSaveFixture, fixture.FromInput(in, cfgYAML)); err != nil {
			return err
		}
	}

	env := engine.Analyze(in, engine.Options{Now: time.Now})

	if db != nil {
		if err := db.SaveEnvelope(env.Meta.RepoFingerprint, env); err != nil {
			return err
		}
		if analyzePR != "" && len(env.Core.Cycles) > 0 {
			if err := db.RecordReported(analyzePR, reportedCycles(env)); err != nil {
				return err
			}
		}
	}

	if analyzeComment {
		if len(env.Core.Cycles) > 0 {
			fmt.Print(comment.Render(env))
		}
		return nil
	}
	return printEnvelope(env)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := fixture.ReadFile(args[0])
	if err != nil {
		return err
	}
	in, err := f.Input()
	if err != nil {
		return err
	}
	return printEnvelope(engine.Analyze(in, engine.Options{}))
}

func runCompare(cmd *cobra.Command, args []string) error {
	entries, err := os.ReadDir(compareGoldenDir)
	if err != nil {
		return fmt.Errorf("reading golden directory: %w", err)
	}

	var failures int
	var cases int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		caseDir := filepath.Join(compareGoldenDir, entry.Name())
		if _, err := os.Stat(filepath.Join(caseDir, fixtureFileName)); err != nil {
			continue
		}
		cases++
		if err := compareCase(caseDir); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", entry.Name(), err)
			continue
		}
		fmt.Printf("ok   %s\n", entry.Name())
	}

	if cases == 0 {
		return fmt.Errorf("no fixture cases under %s", compareGoldenDir)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d cases failed", failures, cases)
	}
	return nil
}

// compareCase replays one fixture several times and checks both run-to-run
// determinism and agreement with the golden envelope.
func compareCase(caseDir string) error {
	f, err := fixture.ReadFile(filepath.Join(caseDir, fixtureFileName))
	if err != nil {
		return err
	}
	in, err := f.Input()
	if err != nil {
		return err
	}

	var first []byte
	for run := 0; run < compareRuns; run++ {
		env := engine.Analyze(in, engine.Options{})
		body, err := env.CanonicalJSON()
		if err != nil {
			return err
		}
		if run == 0 {
			first = body
			continue
		}
		if !bytes.Equal(body, first) {
			return fmt.Errorf("%s: run %d diverged from run 1", safety.CodeDeterminismMismatch, run+1)
		}
	}

	golden, err := os.ReadFile(filepath.Join(caseDir, goldenFileName))
	if err != nil {
		return fmt.Errorf("reading golden envelope: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(golden), first) {
		return fmt.Errorf("envelope differs from golden")
	}
	return nil
}

func runDumpEnvelope(cmd *cobra.Command, args []string) error {
	db, err := report.Open(dumpDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	env, err := db.GetEnvelope(args[0])
	if err != nil {
		return err
	}
	return printEnvelope(env)
}

func loadConfig(path string) (config.AnalyzerConfig, string, error) {
	if path == "" {
		return config.Default(), "version: 2\n", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config.AnalyzerConfig{}, "", fmt.Errorf("reading config: %w", err)
	}
	cfg, err := config.Load(data)
	if err != nil {
		return config.AnalyzerConfig{}, "", err
	}
	return cfg, string(data), nil
}

func collectDir(dirPath string) ([]snapshot.File, error) {
	matcher, err := ignore.LoadFromDir(dirPath)
	if err != nil {
		return nil, err
	}
	return dirio.Collect(dirPath, dirio.WithIgnore(matcher))
}

func reportedCycles(env *envelope.Envelope) []attribute.Reported {
	records := make([]attribute.Reported, len(env.Core.Cycles))
	for i, c := range env.Core.Cycles {
		records[i] = attribute.Reported{
			Canonical: c.Canonical,
			RootFrom:  c.RootCause.From,
			RootTo:    c.RootCause.To,
		}
	}
	return records
}

func printEnvelope(env *envelope.Envelope) error {
	body, err := env.CanonicalJSON()
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBaseRev, "base-rev", "", "Base Git revision for diff attribution")
	analyzeCmd.Flags().StringVar(&analyzeHeadRev, "head-rev", "", "Head Git revision to analyze (default: working directory)")
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to the analyzer config YAML")
	analyzeCmd.Flags().StringVar(&analyzeDBPath, "db", "", "Path to the report database")
	analyzeCmd.Flags().StringVar(&analyzePR, "pr", "", "PR identifier for re-report suppression")
	analyzeCmd.Flags().BoolVar(&analyzeComment, "comment", false, "Print the PR comment body instead of the envelope")
	analyzeCmd.Flags().StringVar(&analyzeSaveFixture, "save-fixture", "", "Record the analysis input as a fixture pack")

	compareCmd.Flags().StringVar(&compareGoldenDir, "golden", "testdata/golden", "Directory of fixture cases")

	dumpEnvelopeCmd.Flags().StringVar(&dumpDBPath, "db", "arcsight.db", "Path to the report database")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(dumpEnvelopeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
