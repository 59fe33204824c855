package commands

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskhub",
	Short: "Multi-tenant project-management backend",
	Long: `taskhub is a project-management backend: users belong to projects,
projects contain tasks, tasks accumulate logged work days, and users invite
one another into projects over an authenticated JSON API.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(adminCmd)
}
