package evalcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfscan/shelfscan/internal/eval/dataset"
)

// NewFetchCmd creates the fetch command
func NewFetchCmd() *cobra.Command {
	var repo string
	var file string
	var cacheDir string
	var force bool
	var token string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a labeled shelf dataset from HuggingFace",
		Long: `Download a dataset file from a HuggingFace dataset repository and cache
it locally. Subsequent fetches reuse the cached copy unless --force is set.`,
		Example: `  # Fetch the default labeled shelves dataset
  shelfscan eval fetch --file shelves.parquet

  # Fetch from a private repo
  shelfscan eval fetch --repo myorg/my-shelves --file shelves.jsonl --token $HF_TOKEN`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeFetch(repo, file, cacheDir, token, force)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", dataset.DefaultDatasetRepo, "HuggingFace dataset repository")
	cmd.Flags().StringVar(&file, "file", "shelves.parquet", "Dataset file to fetch from the repository")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (defaults to the HuggingFace datasets cache)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-download even if a cached copy exists")
	cmd.Flags().StringVar(&token, "token", os.Getenv("HF_TOKEN"), "HuggingFace token for private repositories")

	return cmd
}

func executeFetch(repo, file, cacheDir, token string, force bool) error {
	downloader := dataset.NewDownloader(dataset.DownloadConfig{
		Repo:          repo,
		CacheDir:      cacheDir,
		ForceDownload: force,
		Token:         token,
	})

	path, err := downloader.DownloadDataset(file)
	if err != nil {
		return fmt.Errorf("failed to fetch dataset: %w", err)
	}

	fmt.Printf("Dataset cached at: %s\n", path)
	fmt.Printf("\nRun an evaluation with:\n")
	fmt.Printf("  shelfscan eval run --dataset %s\n", path)

	return nil
}
