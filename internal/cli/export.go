package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Export output forms.
const (
	ExportJSON    = "json"
	ExportDOT     = "dot"
	ExportSummary = "summary"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var as, output string

	cmd := &cobra.Command{
		Use:   "export <family>",
		Short: "Export a family's knowledge graph",
		Long: `Export the documents, clauses, facts and bindings of a family and the
contains, defines, references and supports edges between them.

Forms:
  json     nodes and edges (the default with --format json)
  dot      Graphviz
  summary  node and edge counts by kind

Examples:
  truthgraph export acme --as dot -o acme.dot
  truthgraph export acme --as summary`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], as, output, cmd)
		},
	}
	cmd.Flags().StringVar(&as, "as", ExportSummary, "export form (json|dot|summary)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func runExport(opts *RootOptions, family, as, output string, cmd *cobra.Command) error {
	switch as {
	case ExportJSON, ExportDOT, ExportSummary:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --as %q: must be json, dot or summary", as))
	}

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := s.engine.ExportGraph(commandContext(cmd), family)
	if err != nil {
		return s.formatter.Fail("export failed", err)
	}

	formatter := s.formatter
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		file := *formatter
		file.Writer = f
		formatter = &file
		s.formatter.VerboseLog("Writing %s export of %s to %s", as, family, output)
	}

	switch as {
	case ExportDOT:
		return g.WriteDOT(formatter.Writer)
	case ExportJSON:
		formatter.Format = "json"
		return formatter.Success(g)
	default:
		return formatter.Render(g, func(w io.Writer) error {
			_, err := io.WriteString(w, g.Summary())
			return err
		})
	}
}
