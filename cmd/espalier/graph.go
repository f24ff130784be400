package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier/internal/presentation/graph"
	"github.com/espalierhq/espalier/pkg/template"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <template-file>",
	Short: "Export the menu graph visualization",
	Long:  `Compiles the template and outputs a Mermaid diagram (graph TD) of its nodes and transitions.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")

		raw, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("Error reading template: %v\n", err)
			os.Exit(1)
		}
		menu, err := template.Parse(string(raw), nil)
		if err != nil {
			fmt.Printf("Error compiling template: %v\n", err)
			os.Exit(1)
		}

		fmt.Print(graph.Mermaid(menu, start, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("start", "start", "Node drawn as the entry point")
}
