package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/tagvault/pkg/annotate"
	"github.com/aretw0/tagvault/pkg/core"
)

var (
	byTag  string
	byDate string
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List notes by tag (including its subtree) or by date",
	Example: `  tagvault notes --tag '#work'
  tagvault notes --date 2026-03-14`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if (byTag == "") == (byDate == "") {
			fatal("Invalid arguments", fmt.Errorf("exactly one of --tag or --date is required"))
		}
		v := openVault()
		ctx := context.Background()

		var (
			notes []core.Note
			err   error
		)
		if byDate != "" {
			notes, err = v.Index.NotesByDate(ctx, byDate)
		} else {
			var category core.Category
			category, err = annotate.Categorize(byTag)
			if err == nil {
				notes, err = v.Index.NotesByTag(ctx, category, byTag[1:])
			}
		}
		if err != nil {
			fatal("Failed to list notes", err)
		}
		printNotes(notes)
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List notes marked as tasks, most urgent first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		notes, err := v.Index.Tasks(context.Background())
		if err != nil {
			fatal("Failed to list tasks", err)
		}
		printNotes(notes)
	},
}

var countCmd = &cobra.Command{
	Use:   "count YEAR MONTH",
	Short: "Count notes per day of a month",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			fatal("Invalid year", err)
		}
		month, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("Invalid month", err)
		}

		v := openVault()
		counts, err := v.Index.CountByDay(context.Background(), year, month)
		if err != nil {
			fatal("Failed to count notes", err)
		}
		if asJSON {
			printJSON(counts)
			return
		}
		days := make([]string, 0, len(counts))
		for d := range counts {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			fmt.Printf("%s  %3d  %s\n", d, counts[d], strings.Repeat("*", counts[d]))
		}
	},
}

func init() {
	notesCmd.Flags().StringVar(&byTag, "tag", "", "Tag token, e.g. '#work' or '@ana'")
	notesCmd.Flags().StringVar(&byDate, "date", "", "Date in YYYY-MM-DD form")
	rootCmd.AddCommand(notesCmd, tasksCmd, countCmd)
}
