package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/internal/usecase"
)

var (
	askNamespace string
	askQuestion  string
	askTopK      int
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an uploaded document",
	Long: `Ask embeds the question, retrieves the most similar chunks from the
namespace and asks the completion model to answer using only those
chunks. Citations name the chunks the answer drew on.

Examples:
  docqa ask -n report-a1b2c3d4 -q "What were the Q3 results?"
  docqa ask -n report-a1b2c3d4 -q "Summarize the risks" -k 10 --json`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askNamespace, "namespace", "n", "", "namespace to query (required)")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output JSON")
	askCmd.MarkFlagRequired("namespace")
	askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	embedder, _, err := newCachedEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	completer, err := newCompleter()
	if err != nil {
		return fmt.Errorf("failed to create completion client: %w", err)
	}

	st, closeStore, err := newVectorStore()
	if err != nil {
		return err
	}
	defer closeStore()

	topK := askTopK
	if topK == 0 {
		topK = cfg.Ask.TopK
	}

	uc := usecase.NewAskUseCase(embedder, st, completer, nil)
	answer, err := uc.Ask(cmd.Context(), askNamespace, askQuestion, topK)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Answer)
	if len(answer.Citations) > 0 {
		fmt.Printf("\nSources:\n")
		for _, citation := range answer.Citations {
			fmt.Printf("  [%s] %s\n", citation.ID, citation.Text)
		}
	}
	fmt.Printf("\n(%d chunks retrieved, %d cited)\n", answer.ChunksFound, answer.CitationsUsed)
	return nil
}
