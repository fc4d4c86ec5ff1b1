package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/extractor"
	"docqa/internal/adapter/fs"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

var uploadNamespace string

var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a document (or directory of documents) for question answering",
	Long: `Upload extracts text from the given file, splits it into chunks, embeds
each chunk and stores the vectors under a namespace. Pass a directory to
upload every matching file in it.

Examples:
  docqa upload report.txt                  # Derived namespace, printed on completion
  docqa upload report.txt -n quarterly     # Explicit namespace
  docqa upload ./docs                      # Every matching file under ./docs`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadNamespace, "namespace", "n", "", "namespace to store vectors under (default derived from filename)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var files []string
	if info.IsDir() {
		walker := fs.NewWalker(cfg.Upload.Includes, cfg.Upload.Excludes)
		files, err = walker.Walk(path)
		if err != nil {
			return fmt.Errorf("scanning directory failed: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no matching files under %s", path)
		}
	} else {
		files = []string{path}
	}

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	st, closeStore, err := newVectorStore()
	if err != nil {
		return err
	}
	defer closeStore()

	uc := usecase.NewUploadUseCase(
		extractor.NewTextExtractor(),
		newChunker(),
		embedder,
		st,
		nil,
		cfg.Upload.MaxFileBytes,
		nil,
	)

	for _, file := range files {
		if err := uploadOne(cmd, uc, file); err != nil {
			return err
		}
	}
	return nil
}

func uploadOne(cmd *cobra.Command, uc *usecase.UploadUseCase, path string) error {
	data, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s failed: %w", path, err)
	}

	source := filepath.Base(path)
	fmt.Printf("Uploading %s...\n", source)

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := uc.Upload(cmd.Context(), usecase.UploadInput{
		Data:      data,
		Source:    source,
		Namespace: uploadNamespace,
	}, progress)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Upload complete:\n")
	fmt.Printf("  Namespace: %s\n", result.Namespace)
	fmt.Printf("  Chunks:    %d\n", result.ChunkCount)
	fmt.Printf("  Vectors:   %d\n", result.VectorCount)
	fmt.Printf("  Model:     %s\n", result.Model)
	return nil
}

func newChunker() port.Chunker {
	if cfg.Chunking.Strategy == "char" {
		return chunker.NewCharChunker(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens)
	}
	return chunker.NewSentenceChunker(cfg.Chunking.MaxTokens, cfg.Chunking.OverlapTokens, chunker.NewHeuristicCounter())
}
