package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tagvault/internal/platform"
)

var historyLimit int

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair the tag index against the notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		report, err := v.Index.Reconcile(changeContext())
		if err != nil {
			fatal("Failed to reconcile", err)
		}
		if asJSON {
			printJSON(report)
			return
		}
		if report.Empty() {
			fmt.Println("Index is consistent.")
			return
		}
		fmt.Printf("Fixed %d notes, created %d tags, removed %d tags.\n",
			len(report.FixedNotes), len(report.CreatedTags), len(report.DeletedTags))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the recorded changes to the notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		if v.Git == nil {
			fatal("No history", fmt.Errorf("versioning is disabled for %s", v.Dir))
		}
		lines, err := v.Git.Log(platform.NotesFile, historyLimit)
		if err != nil {
			fatal("Failed to read history", err)
		}
		for _, l := range lines {
			fmt.Println(l)
		}
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the internal state of the vault components",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printJSON(openVault().State())
	},
}

func init() {
	reconcileCmd.Flags().StringVarP(&reason, "message", "m", "", "Commit message for the change")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	rootCmd.AddCommand(reconcileCmd, historyCmd, stateCmd)
}
