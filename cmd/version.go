package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version commands",
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	versionCmd.AddCommand(createVersionCmd())
	versionCmd.AddCommand(listVersionsCmd())
	versionCmd.AddCommand(restoreVersionCmd())
	versionCmd.AddCommand(diffVersionsCmd())
}

func createVersionCmd() *cobra.Command {
	var projectID string
	var actorID string
	var content string
	var title string

	command := &cobra.Command{
		Use:   "create",
		Short: "create a new version",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" || actorID == "" {
				color.Red("missing: --project and --actor")
				return
			}

			version, err := apiClient().CreateVersion(context.Background(), projectID, actorID, content, title, "")
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			color.Green("created version v%d (%s)", version.Number, version.ID)
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	command.Flags().StringVarP(&actorID, "actor", "a", "", "actor id")
	command.Flags().StringVarP(&content, "content", "c", "", "content")
	command.Flags().StringVarP(&title, "title", "t", "", "title")

	return command
}

func listVersionsCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "list",
		Short: "list versions, most recent first",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" {
				color.Red("missing: --project")
				return
			}

			versions, err := apiClient().ListVersions(context.Background(), projectID)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Number", "ID", "Title", "Created By"})
			for _, version := range versions {
				table.Append([]string{strconv.FormatInt(version.Number, 10), version.ID, version.Title, version.CreatedBy})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")

	return command
}

func restoreVersionCmd() *cobra.Command {
	var projectID string
	var versionID string
	var actorID string

	command := &cobra.Command{
		Use:   "restore",
		Short: "restore a version as a new version",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" || versionID == "" || actorID == "" {
				color.Red("missing: --project, --version and --actor")
				return
			}

			version, err := apiClient().RestoreVersion(context.Background(), projectID, versionID, actorID)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			color.Green("restored as v%d (%s)", version.Number, version.ID)
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	command.Flags().StringVarP(&versionID, "version", "v", "", "version id")
	command.Flags().StringVarP(&actorID, "actor", "a", "", "actor id")

	return command
}

func diffVersionsCmd() *cobra.Command {
	var fromID string
	var toID string

	command := &cobra.Command{
		Use:   "diff",
		Short: "diff two versions",
		Run: func(cmd *cobra.Command, args []string) {
			if fromID == "" || toID == "" {
				color.Red("missing: --from and --to")
				return
			}

			spans, err := apiClient().Diff(context.Background(), fromID, toID)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			for _, span := range spans {
				switch span.Op {
				case "insertion":
					color.Green("%s", span.Text)
				case "deletion":
					color.Red("%s", span.Text)
				default:
					fmt.Print(span.Text)
				}
			}
			fmt.Println()
		},
	}

	command.Flags().StringVarP(&fromID, "from", "f", "", "from version id")
	command.Flags().StringVarP(&toID, "to", "t", "", "to version id")

	return command
}
