package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mdsplit/internal/parser"
	"github.com/dgallion1/mdsplit/internal/source"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		outDir    string
		pdftotext bool
	)
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a pdf, docx, html, csv or text file to markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := source.Convert(args[0], pdftotext || a.cfg.PDFFallbackPdftotext)
			if err != nil {
				return err
			}
			if outDir == "" {
				out := doc.Markdown
				if !strings.HasSuffix(out, "\n") {
					out += "\n"
				}
				_, err := io.WriteString(cmd.OutOrStdout(), out)
				return err
			}

			path, err := parser.SaveMarkdown(outDir, args[0], doc.Markdown)
			if err != nil {
				return err
			}
			a.log.Info("saved markdown", "path", path, "title", doc.Title)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory to write <name>.md into instead of stdout")
	cmd.Flags().BoolVar(&pdftotext, "pdftotext", false, "Fall back to pdftotext when a PDF cannot be read")
	return cmd
}
