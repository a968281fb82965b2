package main

import (
	"docinsight-backend/dao"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage prompt templates",
	Long: `Manage prompt templates used for document analyses.

Examples:
  docinsight prompts init
  docinsight prompts list`,
}

var promptsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the built-in prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initDB(); err != nil {
			return err
		}

		created, err := newAnalysisService(dao.DB).InitializeDefaults(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %d prompt templates\n", created)
		return nil
	},
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List public prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initDB(); err != nil {
			return err
		}

		templates, err := newAnalysisService(dao.DB).ListTemplates(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tUSAGE")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Category, t.UsageCount)
		}
		return w.Flush()
	},
}

func init() {
	promptsCmd.AddCommand(promptsInitCmd)
	promptsCmd.AddCommand(promptsListCmd)
}
