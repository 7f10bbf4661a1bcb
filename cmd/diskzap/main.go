package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sigreer/diskzap/internal/blockdev"
	"github.com/sigreer/diskzap/internal/config"
	"github.com/sigreer/diskzap/internal/journal"
	"github.com/sigreer/diskzap/internal/pipeline"
	"github.com/sigreer/diskzap/internal/resolve"
	"github.com/sigreer/diskzap/internal/system"
	"github.com/sigreer/diskzap/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "diskzap",
	Short: "Destructive storage-device metadata eraser",
	Long: `diskzap erases storage-device metadata (partition tables, RAID
superblocks, LVM structures, Ceph OSD signatures, ZFS labels) from
selected whole disks, reloads the kernel's view of each device, and
verifies that no partitions or LVM registrations remain.

There is no undo. Every destroyed structure is gone.`,
}

var wipeCmd = &cobra.Command{
	Use:   "wipe <device|pattern|all>...",
	Short: "Wipe metadata from the given disks",
	Long: `Wipe metadata from the given whole disks.

Targets are device names (sdb), canonical paths (/dev/sdb), shell-style
patterns matched against the current device listing (sd?, nvme*), or the
literal 'all' for every eligible whole disk.

The system disk, optical/loop/ram devices, and device-mapper nodes are
protected. --force lifts the system-disk protection and --include-dm the
device-mapper one; the optical/loop/ram protection can never be lifted.

Examples:
  diskzap wipe sdb sdc
  diskzap wipe 'sd?'          # quoted so the shell does not expand it
  diskzap wipe all --exclude sda,sdb --auto
  diskzap wipe --dry-run all`,
	Args: cobra.MinimumNArgs(1),
	Run:  runWipe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the diskzap version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/diskzap/config.yaml)")

	wipeCmd.Flags().Bool("auto", false, "process every target without prompting")
	wipeCmd.Flags().Bool("manual", false, "prompt before each target (default)")
	wipeCmd.Flags().Bool("force", false, "allow wiping the system disk")
	wipeCmd.Flags().StringSlice("exclude", nil, "device names to exclude (comma-separated or repeated)")
	wipeCmd.Flags().Bool("include-dm", false, "allow device-mapper targets")
	wipeCmd.Flags().Bool("zap-ceph", false, "also zap Ceph OSD signatures")
	wipeCmd.Flags().Bool("zap-zfs", false, "also clear ZFS labels")
	wipeCmd.Flags().Bool("dry-run", false, "log what would run without touching anything")
	wipeCmd.Flags().String("db", "", "wipe journal location (default from config)")

	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func runWipe(cmd *cobra.Command, args []string) {
	auto, _ := cmd.Flags().GetBool("auto")
	manual, _ := cmd.Flags().GetBool("manual")
	force, _ := cmd.Flags().GetBool("force")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	includeDM, _ := cmd.Flags().GetBool("include-dm")
	zapCeph, _ := cmd.Flags().GetBool("zap-ceph")
	zapZFS, _ := cmd.Flags().GetBool("zap-zfs")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	dbPath, _ := cmd.Flags().GetString("db")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		pterm.Error.Printfln("loading config: %v", err)
		os.Exit(1)
	}

	mode := pipeline.Manual
	switch {
	case dryRun:
		mode = pipeline.Preview
	case auto && !manual:
		mode = pipeline.Auto
	}

	if mode != pipeline.Preview && os.Geteuid() != 0 {
		pterm.Error.Println("diskzap must run as root")
		os.Exit(1)
	}

	tools := system.Probe()
	if missing := tools.Missing(); len(missing) > 0 {
		pterm.Error.Printfln("required tools not found: %s — install them manually and retry",
			strings.Join(missing, ", "))
		os.Exit(3)
	}

	gateway := system.NewGateway(tools)
	systemDisk := cfg.SystemDisk
	if systemDisk == "" {
		systemDisk = blockdev.FindRootDisk()
	} else {
		systemDisk = blockdev.Canonicalize(systemDisk)
	}

	targets, skips, err := resolve.Resolve(&blockdev.Enumerator{}, resolve.Options{
		Args:            args,
		Exclude:         append(exclude, cfg.Exclude...),
		IncludeDM:       includeDM,
		ForceSystemDisk: force,
		SystemDisk:      systemDisk,
	})
	for _, s := range skips {
		pterm.Info.Printfln("protected (%s): %s", s.Rule, s.Path)
	}
	if err != nil {
		pterm.Error.Printfln("resolving targets: %v", err)
		os.Exit(2)
	}

	p := &pipeline.Pipeline{
		Inspector: gateway,
		Mutator:   gateway,
		Logger:    ptermLogger{},
		Mode:      mode,
		WipeMiB:   cfg.WipeMiB,
		Settle:    time.Duration(cfg.SettleSeconds) * time.Second,
		ZapCeph:   zapCeph,
		ZapZFS:    zapZFS,
	}
	if mode == pipeline.Preview {
		p.Mutator = &system.DryRun{Log: func(format string, args ...any) {
			pterm.Info.Printfln(format, args...)
		}}
	}

	var db *journal.DB
	runID := uuid.NewString()
	if mode != pipeline.Preview {
		if dbPath == "" {
			dbPath = cfg.Database
		}
		db, err = journal.Open(dbPath)
		if err != nil {
			pterm.Warning.Printfln("wipe journal unavailable: %v", err)
		} else {
			defer db.Close()
			if err := db.BeginRun(runID, mode.String(), strings.Join(args, " "), zapCeph, zapZFS); err != nil {
				pterm.Warning.Printfln("recording run: %v", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var confirmer pipeline.Confirmer
	if mode == pipeline.Manual {
		confirmer = newStdinConfirmer(time.Duration(cfg.ConfirmTimeoutSeconds) * time.Second)
	}

	outcomes := p.Run(ctx, targets, confirmer)

	if db != nil {
		for i := range outcomes {
			recordOutcome(db, runID, &outcomes[i])
		}
		if err := db.FinishRun(runID); err != nil {
			pterm.Warning.Printfln("finishing run record: %v", err)
		}
	}

	printSummary(outcomes)
}

func recordOutcome(db *journal.DB, runID string, out *pipeline.Outcome) {
	rec := &journal.TargetRecord{
		RunID:     runID,
		Device:    out.Target.Path,
		Model:     out.Target.Model,
		Serial:    out.Target.Serial,
		SizeBytes: out.Target.Size,
		Status:    out.Status,
		Warnings:  out.Warnings(),
	}
	if out.Report != nil {
		rec.ResidualPartitions = out.Report.ResidualPartitions
		rec.ResidualPVs = out.Report.ResidualPVs
	}
	if err := db.RecordTarget(rec); err != nil {
		pterm.Warning.Printfln("recording %s: %v", out.Target.Path, err)
	}
}

// printSummary reports each target as clean or still carrying residual
// state. The tool never claims more than that: the pipeline is
// best-effort end to end.
func printSummary(outcomes []pipeline.Outcome) {
	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	for i := range outcomes {
		out := &outcomes[i]
		switch out.Status {
		case pipeline.OutcomeProcessed:
			if out.Report != nil && !out.Report.Clean() {
				pterm.Warning.Printfln("%s: residual state remains (%d partitions, %d PVs)",
					out.Target.Path, len(out.Report.ResidualPartitions), len(out.Report.ResidualPVs))
				for _, hint := range out.Report.Hints() {
					pterm.Info.Printfln("  %s", hint)
				}
			} else if warnings := out.Warnings(); len(warnings) > 0 {
				pterm.Success.Printfln("%s: clean (%d warnings during wipe)", out.Target.Path, len(warnings))
			} else {
				pterm.Success.Printfln("%s: clean", out.Target.Path)
			}
		case pipeline.OutcomePreviewed:
			pterm.Info.Printfln("%s: previewed, nothing touched", out.Target.Path)
		case pipeline.OutcomeDeclined:
			pterm.Info.Printfln("%s: skipped (declined)", out.Target.Path)
		case pipeline.OutcomeMissing:
			pterm.Warning.Printfln("%s: skipped (device disappeared)", out.Target.Path)
		case pipeline.OutcomeInterrupted:
			pterm.Warning.Printfln("%s: interrupted", out.Target.Path)
		}
	}
}

// ptermLogger adapts pterm printers to the pipeline's Logger.
type ptermLogger struct{}

func (ptermLogger) Infof(format string, args ...any) { pterm.Info.Printfln(format, args...) }
func (ptermLogger) Warnf(format string, args ...any) { pterm.Warning.Printfln(format, args...) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
