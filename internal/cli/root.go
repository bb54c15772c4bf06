// Package cli wires configuration, logging and services into the pdfrag
// command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags
var version = "dev"

// NewRootCommand builds the pdfrag command tree
func NewRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pdfrag",
		Short: "Chat with uploaded PDF documents using retrieval-augmented generation",
		Long: `pdfrag serves an HTTP API that indexes pre-extracted PDF chunks into a
vector database, one namespace per document, and answers questions about a
document from its most relevant chunks.

Configuration is read from config.yaml or config.json in the working
directory (or the file given with --config) and PDFRAG_* environment
variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newNamespaceCommand(&configPath))
	return rootCmd
}
