package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <template-file>",
	Short: "Run a menu template interactively",
	Long:  `Compiles the template and starts an interactive session on the terminal, reading input from stdin.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := cli.RunOptions{TemplatePath: args[0]}
		opts.StartNode, _ = cmd.Flags().GetString("start")
		opts.Actor, _ = cmd.Flags().GetString("actor")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.Markdown, _ = cmd.Flags().GetBool("markdown")
		opts.NoBanner, _ = cmd.Flags().GetBool("no-banner")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.Resume, _ = cmd.Flags().GetBool("resume")

		if err := cli.RunSession(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("start", "", "Node to start the menu on (default \"start\")")
	runCmd.Flags().String("actor", "local", "Actor key the session runs under")
	runCmd.Flags().Bool("debug", false, "Enable debug logging and the menudebug command")
	runCmd.Flags().Bool("markdown", false, "Render node text as markdown")
	runCmd.Flags().Bool("no-banner", false, "Skip the startup banner")
	runCmd.Flags().String("redis", "", "Redis address for durable sessions (e.g. localhost:6379)")
	runCmd.Flags().Bool("resume", false, "Resume a stored session instead of starting fresh")
}
