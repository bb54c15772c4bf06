package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNamespaceCommand(configPath *string) *cobra.Command {
	namespaceCmd := &cobra.Command{
		Use:   "namespace",
		Short: "Inspect or clear a document's namespace",
		Long: `Every uploaded document is stored in its own namespace, named after its
document id.

Examples:
  # Show how many chunks a document has
  pdfrag namespace stats 3f1c9a2e-7d4b-4f5e-9a61-2b8c0d7e4f10

  # Remove a document
  pdfrag namespace clear 3f1c9a2e-7d4b-4f5e-9a61-2b8c0d7e4f10`,
	}

	statsCmd := &cobra.Command{
		Use:   "stats <document_id>",
		Short: "Print the vector count of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			count, found, err := a.vectorStore.NamespaceVectorCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d vectors\n", args[0], count)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <document_id>",
		Short: "Delete every vector of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.vectorStore.ClearNamespace(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: cleared\n", args[0])
			return nil
		},
	}

	namespaceCmd.AddCommand(statsCmd, clearCmd)
	return namespaceCmd
}
