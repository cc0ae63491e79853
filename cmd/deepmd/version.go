package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var printAllVersion bool

var versionTemplate = `Version:	  %s
Go version:	  %s
OS/Arch:	  %s/%s
`

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		if printAllVersion {
			fmt.Fprintf(cmd.OutOrStdout(), versionTemplate, version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&printAllVersion, "all", false, "Print all version information")
}
