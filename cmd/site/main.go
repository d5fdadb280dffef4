// Command site runs the marketing site: the HTTP server, the prerender
// step and database seeding.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	siteerrors "github.com/vango-dev/site/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var envFiles []string

	rootCmd := &cobra.Command{
		Use:   "site",
		Short: "Marketing site and blog server",
		Long: `Site serves the marketing pages and the blog.

Static pages are prerendered at build time, the blog renders on the
server per request, and everything else is rendered in the browser.

Configuration comes from the environment and .env files. See
.env.example for every variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load (default .env)")

	rootCmd.AddCommand(
		serveCmd(&envFiles),
		prerenderCmd(&envFiles),
		seedCmd(&envFiles),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		siteerrors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
