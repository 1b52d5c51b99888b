package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFileName = "intake"
)

var contextCommand = &cobra.Command{
	Use:   "context",
	Short: "context commands",
}

func init() {
	contextCommand.AddCommand(setContextCommand())
	contextCommand.AddCommand(currentContextCommand())
}

type Context struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
}

// saves the context info to the config file in ./.tmp
func setContextCommand() *cobra.Command {
	var endpoint string
	var token string
	command := &cobra.Command{
		Use:   "set",
		Short: "set context",
		Run: func(cmd *cobra.Command, args []string) {
			if endpoint == "" {
				color.Red(`missing: --endpoint`)
				return
			}

			writeContext(Context{
				Endpoint: endpoint,
				Token:    token,
			})
		},
	}

	command.Flags().StringVarP(&endpoint, "endpoint", "e", "", "api endpoint, e.g. http://localhost:8040")
	command.Flags().StringVarP(&token, "token", "t", "", "token")

	return command
}

func currentContextCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "current",
		Short: "current context",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := readContext()
			fmt.Println("endpoint:", ctx.Endpoint)
		},
	}

	return command
}

func writeContext(context Context) {
	viper.SetConfigName(configFileName)
	viper.AddConfigPath("./.tmp")
	viper.SetConfigType("yml")
	viper.Set("context", context)

	if err := os.MkdirAll("./.tmp", os.ModePerm); err != nil {
		fmt.Println("error creating config dir: ", err)
		return
	}

	if err := viper.WriteConfigAs("./.tmp/" + configFileName + ".yml"); err != nil {
		fmt.Println("error writing config file: ", err)
	} else {
		fmt.Println("context saved")
	}
}

func readContext() Context {
	var ctx Context

	viper.SetConfigName(configFileName)
	viper.AddConfigPath("./.tmp")
	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return Context{Endpoint: "http://localhost:8040"}
	}

	if err := viper.UnmarshalKey("context", &ctx); err != nil {
		fmt.Println("error unmarshalling config file: ", err)
	}

	if ctx.Endpoint == "" {
		ctx.Endpoint = "http://localhost:8040"
	}

	return ctx
}
