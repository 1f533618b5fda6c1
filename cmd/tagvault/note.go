package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tagvault/pkg/core"
)

var (
	noteDate string
	reason   string
)

// changeContext carries the --message flag as the commit message.
func changeContext() context.Context {
	ctx := context.Background()
	if reason != "" {
		ctx = context.WithValue(ctx, core.ChangeReasonKey, reason)
	}
	return ctx
}

var addCmd = &cobra.Command{
	Use:   "add TEXT...",
	Short: "Add a note",
	Example: `  tagvault add '!!! 25-01-02 finish #report for @boss'
  tagvault add --date 2026-01-31 'met @ana about >launch'`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		note, err := v.Index.CreateNote(changeContext(), strings.Join(args, " "), noteDate)
		if err != nil {
			fatal("Failed to add note", err)
		}
		if asJSON {
			printJSON(note)
			return
		}
		printNote(note)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit ID TEXT...",
	Short: "Replace the text of a note",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		change, err := v.Index.PatchNoteText(changeContext(), args[0], strings.Join(args[1:], " "), noteDate)
		if err != nil {
			fatal("Failed to edit note", err)
		}
		if asJSON {
			printJSON(change)
			return
		}
		printNote(change.Note)
		if len(change.AddedTags) > 0 {
			fmt.Println("added:", strings.Join(change.AddedTags, " "))
		}
		if len(change.RemovedTags) > 0 {
			fmt.Println("removed:", strings.Join(change.RemovedTags, " "))
		}
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		removed, err := v.Index.DeleteNote(changeContext(), args[0])
		if err != nil {
			fatal("Failed to delete note", err)
		}
		if asJSON {
			printJSON(map[string]any{"removed_tags": removed})
			return
		}
		fmt.Printf("Note '%s' deleted.\n", args[0])
		if len(removed) > 0 {
			fmt.Println("tags removed:", strings.Join(removed, " "))
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		note, err := v.Index.GetNote(context.Background(), args[0])
		if err != nil {
			fatal("Failed to read note", err)
		}
		if asJSON {
			printJSON(note)
			return
		}
		printNote(note)
		if len(note.Tags) > 0 {
			fmt.Println("tags:", strings.Join(note.Tags, " "))
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&noteDate, "date", "", "File the note under this YYYY-MM-DD date")
	}
	for _, c := range []*cobra.Command{addCmd, editCmd, rmCmd} {
		c.Flags().StringVarP(&reason, "message", "m", "", "Commit message for the change")
	}
	rootCmd.AddCommand(addCmd, editCmd, rmCmd, showCmd)
}
