package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sigreer/diskzap/internal/blockdev"
	"github.com/sigreer/diskzap/internal/config"
	"github.com/sigreer/diskzap/internal/resolve"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List whole disks and their protection status",
	Long: `List the whole disks currently attached, with size, model, serial,
and the protection rule (if any) that would exclude each from 'wipe all'.
Read-only; safe to run anywhere.`,
	Run: runList,
}

func init() {
	listCmd.Flags().Bool("json", false, "Output as JSON")
}

type listEntry struct {
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Model      string `json:"model,omitempty"`
	Serial     string `json:"serial,omitempty"`
	Transport  string `json:"transport,omitempty"`
	Partitions int    `json:"partitions"`
	Protected  string `json:"protected,omitempty"`
}

func runList(cmd *cobra.Command, args []string) {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	systemDisk := cfg.SystemDisk
	if systemDisk == "" {
		systemDisk = blockdev.FindRootDisk()
	} else {
		systemDisk = blockdev.Canonicalize(systemDisk)
	}

	enum := &blockdev.Enumerator{}
	disks, err := enum.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
		os.Exit(1)
	}

	entries := make([]listEntry, 0, len(disks))
	for _, d := range disks {
		entry := listEntry{
			Path:       d.Path,
			Size:       d.Size,
			Model:      d.Model,
			Serial:     d.Serial,
			Transport:  d.Transport,
			Partitions: len(d.Partitions),
			Protected:  protectionFor(d.Path, systemDisk, cfg.Exclude),
		}
		entries = append(entries, entry)
	}

	if jsonOut {
		out, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(out))
		return
	}

	rows := pterm.TableData{{"DEVICE", "SIZE", "MODEL", "SERIAL", "PARTS", "PROTECTED"}}
	for _, e := range entries {
		protected := e.Protected
		if protected == "" {
			protected = "-"
		}
		rows = append(rows, []string{
			e.Path,
			humanize.IBytes(uint64(e.Size)),
			orDash(e.Model),
			orDash(e.Serial),
			fmt.Sprint(e.Partitions),
			protected,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// protectionFor names the rule that would shield the disk from
// 'wipe all', mirroring the resolver's evaluation order.
func protectionFor(path, systemDisk string, exclude []string) string {
	name := blockdev.BaseName(path)
	for _, ex := range exclude {
		if ex == name || blockdev.Canonicalize(ex) == path {
			return resolve.RuleExcluded
		}
	}
	switch {
	case systemDisk != "" && path == systemDisk:
		return resolve.RuleSystemDisk
	case blockdev.IsSpecial(path):
		return resolve.RuleSpecial
	case blockdev.IsMapper(path):
		return resolve.RuleMapper
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
