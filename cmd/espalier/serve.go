package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier/internal/httpd"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/pkg/template"
)

var serveCmd = &cobra.Command{
	Use:   "serve <template-file>...",
	Short: "Serve menu sessions over HTTP",
	Long:  `Compiles the given templates and exposes a JSON API for creating sessions and posting input. Each template is addressed by its base name.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		logger := logging.New(slog.LevelInfo)

		menus := make(map[string]any, len(args))
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("Error reading template %s: %v\n", path, err)
				os.Exit(1)
			}
			menu, err := template.Parse(string(raw), nil)
			if err != nil {
				fmt.Printf("Error compiling template %s: %v\n", path, err)
				os.Exit(1)
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			menus[name] = menu
		}

		server := httpd.NewServer(menus, logger)
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Espalier server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Espalier server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
