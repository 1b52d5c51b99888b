package cmd

import (
	"github.com/emrgen/intake/internal/config"
	"github.com/emrgen/intake/internal/server"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd())
}

func serveCmd() *cobra.Command {
	var httpPort string

	command := &cobra.Command{
		Use:   "serve",
		Short: "start the intake api server",
		Run: func(cmd *cobra.Command, args []string) {
			if httpPort == "" {
				httpPort = config.LoadConfig().HTTPPort
			}
			server.NewServer(httpPort).Start()
		},
	}

	command.Flags().StringVarP(&httpPort, "port", "P", "", "http port")

	return command
}
