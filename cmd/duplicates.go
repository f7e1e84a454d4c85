package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenscorch/screenscorch/internal/config"
	"github.com/screenscorch/screenscorch/internal/duplicates"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find duplicate and low-information screenshots",
	Long: `Scan the index for cleanup candidates.

Exact duplicates share identical file bytes. Near-duplicate groups are
similarity chains: members are linked through images within the perceptual
hash threshold, which does not require every pair in a group to be mutually
similar. Nothing is deleted; this command only reports.

Examples:
  screenscorch duplicates
  screenscorch duplicates --threshold 5
  screenscorch duplicates --json`,
	RunE: runDuplicates,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)

	duplicatesCmd.Flags().Int("threshold", 0, "Hamming distance threshold for near-duplicates (default from config)")
	duplicatesCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	threshold := mustGetInt(cmd, "threshold")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	if threshold == 0 {
		threshold = cfg.Tuning.NearThreshold
	}

	store := loadStore(cfg)
	scanner := duplicates.NewScanner(threshold, cfg.Tuning.LowInfoRatio)

	report, err := scanner.Find(store, func(msg string) {
		if !jsonOutput {
			fmt.Println(msg)
		}
	})
	if errors.Is(err, duplicates.ErrIndexNotReady) {
		return fmt.Errorf("no index found: run 'screenscorch index <folder>' first")
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if len(report.Exact) == 0 {
		fmt.Println("\nNo exact duplicates found.")
	} else {
		fmt.Printf("\nFound %d groups of exact duplicates:\n", len(report.Exact))
		printGroups(report.Exact)
	}

	if len(report.Near) == 0 {
		fmt.Println("\nNo near-duplicates found.")
	} else {
		fmt.Printf("\nFound %d chains of near-duplicates:\n", len(report.Near))
		printGroups(report.Near)
	}

	if len(report.LowInfo) > 0 {
		fmt.Printf("\nFound %d low-information screenshots:\n", len(report.LowInfo))
		for _, rec := range report.LowInfo {
			fmt.Printf("  - %s\n", rec.FilePath)
		}
	}

	fmt.Println("\nNothing has been deleted; review the groups above.")
	return nil
}

func printGroups(groups []duplicates.Group) {
	for i, group := range groups {
		fmt.Printf("\n  Group %d:\n", i+1)
		for _, rec := range group {
			fmt.Printf("    - %s\n", rec.FilePath)
		}
	}
}
