package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier/internal/validator"
	"github.com/espalierhq/espalier/pkg/template"
)

var validateCmd = &cobra.Command{
	Use:   "validate <template-file>",
	Short: "Check a menu template for consistency",
	Long:  `Compiles the template and crawls it from the start node, reporting dead links and unreachable nodes.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")
		if err := runValidate(args[0], start); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Menu is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("start", "start", "Node to crawl from")
}

func runValidate(path, start string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	menu, err := template.Parse(string(raw), nil)
	if err != nil {
		return err
	}
	return validator.ValidateMenu(menu, start)
}
