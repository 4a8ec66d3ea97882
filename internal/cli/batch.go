package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
	retierCmd.Flags().Bool("force", false, "Run even if the configured update frequency has not elapsed")
	rootCmd.AddCommand(retierCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one settlement sweep and exit",
	Long: `Credits every pending commission whose holding period has elapsed.
Safe to re-run: already-settled commissions are not reprocessed.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.scheduler.SweepPendingCommissions()
	if err != nil {
		return err
	}
	fmt.Printf("Sweep complete: examined=%d credited=%d skipped=%d batches=%d\n",
		result.Examined, result.Credited, result.Skipped, result.Batches)
	return nil
}

var retierCmd = &cobra.Command{
	Use:   "retier",
	Short: "Run one tier reclassification batch and exit",
	RunE:  runRetier,
}

func runRetier(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.tiers.UpdateAllTiers(force)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Println("Tier update not due yet (use --force to override)")
		return nil
	}
	fmt.Printf("Tier update complete: artists=%d updated=%d upgrades=%d downgrades=%d\n",
		result.Artists, result.Updated, result.Upgrades, result.Downgrades)
	return nil
}
