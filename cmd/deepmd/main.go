package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "deepmd",
	Short:         "Export research responses to Markdown",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if envFile != "" {
			os.Setenv("DEEPMD_ENV_FILE", envFile)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, versionCmd)
	rootCmd.PersistentFlags().StringVarP(&envFile, "env", "e", "", "Environment file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
