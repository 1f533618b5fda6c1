package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tagvault/pkg/core"
	"github.com/aretw0/tagvault/pkg/index"
)

var (
	tagMatch   string
	tagTreed   bool
	tagParent  string
	tagContent string
	tagRename  string
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the tag index",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		ctx := context.Background()

		var (
			tags []core.Tag
			err  error
		)
		if tagMatch != "" {
			tags, err = v.Index.MatchTags(ctx, tagMatch)
		} else {
			tags, err = v.Index.ListTags(ctx)
		}
		if err != nil {
			fatal("Failed to list tags", err)
		}
		if asJSON {
			printJSON(tags)
			return
		}
		for _, t := range tags {
			printTag(t)
		}
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage a single tag",
}

var tagSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Set the hierarchy fields and content of a tag, optionally renaming it",
	Long: `Set replaces the treed flag, the parent and the content of a tag.
Omitted flags reset the field, as with a full update. --rename rewrites every
note and child tag that refers to the old name.`,
	Example: `  tagvault tag set '#docs' --treed --parent '#work'
  tagvault tag set '#old' --rename '#new'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		patch := index.TagPatch{Treed: tagTreed, Content: tagContent, Rename: tagRename}
		if tagParent != "" {
			patch.Parent = &tagParent
		}

		v := openVault()
		tag, err := v.Index.PatchTag(changeContext(), args[0], patch)
		if err != nil {
			fatal("Failed to update tag", err)
		}
		if asJSON {
			printJSON(tag)
			return
		}
		printTag(tag)
	},
}

func printTag(t core.Tag) {
	line := fmt.Sprintf("%-24s %-9s", t.Name, t.Category)
	if t.Treed {
		line += " treed"
	}
	if t.Parent != nil {
		line += " parent=" + *t.Parent
	}
	if t.Content != "" {
		line += fmt.Sprintf(" content=%q", t.Content)
	}
	fmt.Println(line)
}

func init() {
	tagsCmd.Flags().StringVar(&tagMatch, "match", "", "Glob over tag names, e.g. '#proj-*'")

	tagSetCmd.Flags().BoolVar(&tagTreed, "treed", false, "Show the tag in the hierarchy view")
	tagSetCmd.Flags().StringVar(&tagParent, "parent", "", "Parent tag")
	tagSetCmd.Flags().StringVar(&tagContent, "content", "", "Description kept even when no note uses the tag")
	tagSetCmd.Flags().StringVar(&tagRename, "rename", "", "New name for the tag")
	tagSetCmd.Flags().StringVarP(&reason, "message", "m", "", "Commit message for the change")

	tagCmd.AddCommand(tagSetCmd)
	rootCmd.AddCommand(tagsCmd, tagCmd)
}
