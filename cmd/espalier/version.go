package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of espalier",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("espalier version %s\n", espalier.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
