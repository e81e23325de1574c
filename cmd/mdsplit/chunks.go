package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdsplit/internal/chunker"
	"github.com/dgallion1/mdsplit/internal/segmenter"
	"github.com/dgallion1/mdsplit/internal/source"
)

func newChunksCmd(a *app) *cobra.Command {
	cfg := chunker.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "chunks <file>",
		Short: "Print token-sized chunks of each section as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := source.ReadFile(args[0])
			if err != nil {
				return err
			}
			sections := segmenter.Split(text)
			chunks := chunker.ChunkSections(sections, cfg)
			a.log.Debug("chunked file", "path", args[0], "sections", len(sections), "chunks", len(chunks))
			if chunks == nil {
				chunks = []chunker.Chunk{}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(chunks)
		},
	}
	cmd.Flags().IntVar(&cfg.ChunkSize, "size", cfg.ChunkSize, "Target chunk size in tokens")
	cmd.Flags().IntVar(&cfg.ChunkOverlap, "overlap", cfg.ChunkOverlap, "Overlap between chunks in tokens")
	cmd.Flags().IntVar(&cfg.MinChunk, "min", cfg.MinChunk, "Minimum chunk size in tokens")
	return cmd
}
