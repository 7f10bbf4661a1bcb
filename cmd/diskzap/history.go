package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sigreer/diskzap/internal/config"
	"github.com/sigreer/diskzap/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past wipe runs from the journal",
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().String("db", "", "wipe journal location (default from config)")
	historyCmd.Flags().String("run", "", "show per-target detail for one run ID")
	historyCmd.Flags().Int("limit", 20, "number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	dbPath, _ := cmd.Flags().GetString("db")
	runID, _ := cmd.Flags().GetString("run")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if dbPath == "" {
		dbPath = cfg.Database
	}

	db, err := journal.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if runID != "" {
		showRun(db, runID)
		return
	}

	runs, err := db.RecentRuns(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading journal: %v\n", err)
		os.Exit(1)
	}
	if len(runs) == 0 {
		pterm.Info.Println("No recorded runs.")
		return
	}

	rows := pterm.TableData{{"RUN", "STARTED", "MODE", "ARGS", "FINISHED"}}
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = humanize.Time(*r.FinishedAt)
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Args,
			finished,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func showRun(db *journal.DB, runID string) {
	records, err := db.RunTargets(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading journal: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		pterm.Info.Printfln("No targets recorded for run %s.", runID)
		return
	}

	for _, rec := range records {
		pterm.DefaultSection.Printfln("%s (%s)", rec.Device, rec.Status)
		if rec.Model != "" || rec.Serial != "" {
			pterm.Info.Printfln("  %s serial %s, %s",
				orDash(rec.Model), orDash(rec.Serial), humanize.IBytes(uint64(rec.SizeBytes)))
		}
		if len(rec.Warnings) > 0 {
			pterm.Warning.Printfln("  warnings: %s", strings.Join(rec.Warnings, "; "))
		}
		if len(rec.ResidualPartitions) > 0 {
			pterm.Warning.Printfln("  residual partitions: %s", strings.Join(rec.ResidualPartitions, ", "))
		}
		if len(rec.ResidualPVs) > 0 {
			pterm.Warning.Printfln("  residual PVs: %s", strings.Join(rec.ResidualPVs, ", "))
		}
	}
}
