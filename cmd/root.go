package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the litcal-mcp application
var rootCmd = &cobra.Command{
	Use:   "litcal-mcp",
	Short: "MCP server for the Roman Catholic liturgical calendar",
	Long: `litcal-mcp exposes the Liturgical Calendar API as Model Context Protocol
tools: the General Roman Calendar, national and diocesan calendars, the
liturgy of the day and the Epiphany announcement of the moveable feasts.

Calendar data is cached on disk (or in Valkey) so repeated questions about
the same year do not hit the API again.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "litcal-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the MCP server over stdio
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
