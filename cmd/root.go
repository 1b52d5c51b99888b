package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "reference intake and document version tool",
	Example: `intake serve
intake worker
intake project create -t <title> -a <actor-id>
intake ref add -p <project-id> -a <actor-id> -s <path-or-url>
intake ref list -p <project-id>
intake version list -p <project-id>
intake version restore -p <project-id> -v <version-id> -a <actor-id>
intake version diff --from <version-id> --to <version-id>`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(contextCommand)
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}
