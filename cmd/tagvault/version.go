package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tagvault"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tagvault",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tagvault version %s\n", tagvault.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
