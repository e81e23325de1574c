package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mdsplit/internal/export"
	"github.com/dgallion1/mdsplit/internal/normalize"
	"github.com/dgallion1/mdsplit/internal/section"
	"github.com/dgallion1/mdsplit/internal/segmenter"
	"github.com/dgallion1/mdsplit/internal/source"
)

const stdinArg = "-"

func newSplitCmd(a *app) *cobra.Command {
	var (
		formatName string
		normName   string
		jobs       int
	)
	cmd := &cobra.Command{
		Use:   "split [files...]",
		Short: "Print the sections of each file",
		Long: "Split each file into H1-H4 sections. Non-markdown formats are converted first.\n" +
			"Use - to read standard input. Outputs are written in argument order.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			norm, err := normalize.ForName(normName, normalize.Options{
				APIKey: a.cfg.AnthropicAPIKey,
				Model:  a.cfg.AnthropicModel,
				Logger: a.log,
			})
			if err != nil {
				return err
			}

			var stdin string
			if slices.Contains(args, stdinArg) {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				stdin = string(data)
			}

			s := &splitter{seg: segmenter.New(segmenter.WithLogger(a.log)), norm: norm, format: format, stdin: stdin, app: a}
			outputs, err := s.run(cmd.Context(), args, jobs)
			if err != nil {
				return err
			}
			return writeOutputs(cmd.OutOrStdout(), format, outputs)
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "json", "Output format: json, yaml, markdown or html")
	cmd.Flags().StringVarP(&normName, "normalize", "n", normalize.NameNone, "Normalizer: none, ascii or claude")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Files processed concurrently")
	return cmd
}

type splitter struct {
	app    *app
	seg    *segmenter.Segmenter
	norm   normalize.Normalizer
	format export.Format
	stdin  string
}

// run encodes every input concurrently and returns the outputs in input order.
func (s *splitter) run(ctx context.Context, paths []string, jobs int) ([][]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	outputs := make([][]byte, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))

	for i, path := range paths {
		g.Go(func() error {
			sections, err := s.sections(gctx, path)
			if err != nil {
				return err
			}
			s.app.log.Debug("split file", "path", path, "sections", len(sections))

			var buf bytes.Buffer
			if s.norm.Name() == normalize.NameNone {
				err = export.Write(&buf, s.format, sections)
			} else {
				err = export.WriteNormalized(&buf, s.format, normalize.All(gctx, s.norm, sections))
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			outputs[i] = buf.Bytes()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (s *splitter) sections(ctx context.Context, path string) ([]section.Section, error) {
	if path == stdinArg {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return s.seg.Split(s.stdin), nil
	}
	return source.SplitFile(ctx, s.seg, path)
}

// writeOutputs concatenates per-file outputs. YAML documents are separated by
// "---", markdown and HTML by a blank line.
func writeOutputs(w io.Writer, format export.Format, outputs [][]byte) error {
	sep := ""
	switch format {
	case export.YAML:
		sep = "---\n"
	case export.Markdown, export.HTML:
		sep = "\n"
	}
	for i, out := range outputs {
		if i > 0 && sep != "" {
			if _, err := io.WriteString(w, sep); err != nil {
				return err
			}
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
	return nil
}
