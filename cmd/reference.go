package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/emrgen/intake"
	"github.com/emrgen/intake/internal/config"
	"github.com/emrgen/intake/internal/poller"
	"github.com/emrgen/intake/internal/store"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var refCmd = &cobra.Command{
	Use:   "ref",
	Short: "reference file commands",
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "project commands",
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	projectCmd.AddCommand(createProjectCmd())
	projectCmd.AddCommand(completeIntakeCmd())

	rootCmd.AddCommand(refCmd)
	refCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	refCmd.AddCommand(addRefCmd())
	refCmd.AddCommand(listRefCmd())
	refCmd.AddCommand(listJobsCmd())
	refCmd.AddCommand(watchRefCmd())
}

func apiClient() *intake.Client {
	ctx := readContext()
	return intake.NewClient(ctx.Endpoint, ctx.Token)
}

func createProjectCmd() *cobra.Command {
	var title string
	var actorID string

	command := &cobra.Command{
		Use:   "create",
		Short: "create a project with its aggregate (v1) version",
		Run: func(cmd *cobra.Command, args []string) {
			if actorID == "" {
				color.Red("missing: --actor")
				return
			}

			project, err := apiClient().CreateProject(context.Background(), actorID, title)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			color.Green("project created: %s", project.ID)
		},
	}

	command.Flags().StringVarP(&title, "title", "t", "", "project title")
	command.Flags().StringVarP(&actorID, "actor", "a", "", "actor id")

	return command
}

func completeIntakeCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "complete-intake",
		Short: "mark intake completed, extracted text folds into the aggregate",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" {
				color.Red("missing: --project")
				return
			}

			if err := apiClient().CompleteIntake(context.Background(), projectID, true); err != nil {
				color.Red("error: %v", err)
				return
			}

			color.Green("intake completed for project %s", projectID)
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")

	return command
}

func addRefCmd() *cobra.Command {
	var projectID string
	var actorID string
	var source string

	command := &cobra.Command{
		Use:   "add",
		Short: "register a file path or url for extraction",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" || actorID == "" || source == "" {
				color.Red("missing: --project, --actor and --source")
				return
			}

			result, err := apiClient().RegisterSource(context.Background(), projectID, actorID, source)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			color.Green("registered file %s, job %s", result.FileID, result.JobID)
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	command.Flags().StringVarP(&actorID, "actor", "a", "", "actor id")
	command.Flags().StringVarP(&source, "source", "s", "", "path or url")

	return command
}

func listRefCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "list",
		Short: "list the reference files of a project",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" {
				color.Red("missing: --project")
				return
			}

			files, err := apiClient().ListReferences(context.Background(), projectID)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Kind", "Status"})
			for _, file := range files {
				table.Append([]string{file.ID, file.Name, file.Kind, file.Status})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")

	return command
}

func watchRefCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "watch",
		Short: "poll job and file statuses, print every change",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" {
				color.Red("missing: --project")
				return
			}

			pid, err := uuid.Parse(projectID)
			if err != nil {
				color.Red("invalid project id: %v", err)
				return
			}

			cnf := config.LoadConfig()
			docStore := store.NewGormStore(config.GetDb(cnf))

			watcher := poller.New(docStore, pid, cnf.PollInterval, func(s poller.Snapshot) {
				for _, file := range s.Files {
					fmt.Printf("file %s (%s): %s\n", file.Name, file.ID, file.Status)
				}
				for _, job := range s.Jobs {
					fmt.Printf("job %s: %s\n", job.ID, job.Status)
				}
				fmt.Println()
			})

			ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
			defer cancel()
			watcher.Run(ctx)
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")

	return command
}

func listJobsCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "jobs",
		Short: "list the extraction jobs of a project",
		Run: func(cmd *cobra.Command, args []string) {
			if projectID == "" {
				color.Red("missing: --project")
				return
			}

			jobs, err := apiClient().ListJobs(context.Background(), projectID)
			if err != nil {
				color.Red("error: %v", err)
				return
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "File", "Kind", "Status"})
			for _, job := range jobs {
				table.Append([]string{job.ID, job.FileID, job.Kind, job.Status})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&projectID, "project", "p", "", "project id")

	return command
}
