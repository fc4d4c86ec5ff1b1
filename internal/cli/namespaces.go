package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List namespaces in the vector store",
	RunE:  runNamespaces,
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
}

func runNamespaces(cmd *cobra.Command, args []string) error {
	st, closeStore, err := newVectorStore()
	if err != nil {
		return err
	}
	defer closeStore()

	names, err := st.Namespaces(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing namespaces failed: %w", err)
	}

	if len(names) == 0 {
		fmt.Println("No namespaces found. Upload a document first.")
		return nil
	}

	for _, name := range names {
		count, err := st.Count(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("counting %s failed: %w", name, err)
		}
		fmt.Printf("  %-40s %d chunks\n", name, count)
	}
	return nil
}
