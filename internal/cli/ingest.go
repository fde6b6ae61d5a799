package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/harness"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <bundle.yaml>...",
		Short: "Ingest fact bundles",
		Long: `Register documents, ingest their facts, derive bindings, classify clauses
and resolve cross-references from one or more YAML bundles.

Re-ingesting a bundle is a no-op for facts already stored with the same
content. A fact whose identity is stored with different content rejects
the whole batch of its document.

Examples:
  truthgraph ingest --db acme.db acme.yaml
  truthgraph ingest --db acme.db --schema contract.cue msa.yaml amendment-1.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runIngest(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := commandContext(cmd)

	applied := harness.NewApplied()
	for _, path := range paths {
		b, err := harness.LoadBundle(path)
		if err != nil {
			_ = s.formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load bundle", err)
		}
		s.formatter.VerboseLog("Applying %s (%d documents)", filepath.Base(path), len(b.Documents))
		if err := harness.Apply(ctx, s.engine, b, applied); err != nil {
			return s.formatter.Fail("ingest failed", err)
		}
	}

	return s.formatter.Render(applied, func(w io.Writer) error {
		fmt.Fprintf(w, "Documents:  %d\n", len(applied.Documents))
		fmt.Fprintf(w, "Facts:      %d inserted, %d unchanged\n", applied.Inserted, applied.Unchanged)
		fmt.Fprintf(w, "Bindings:   %d\n", applied.Bindings)
		fmt.Fprintf(w, "Clauses:    %d\n", applied.Clauses)
		for _, family := range applied.Families() {
			r := applied.References[family]
			fmt.Fprintf(w, "References: %s: %d resolved, %d unresolved\n", family, r.Resolved, len(r.Unresolved))
		}
		for _, inf := range applied.Inferences {
			fmt.Fprintf(w, "Inference:  %s %s (confidence %.2f)\n", inf.Ref, inf.Result.Inference.ID, inf.Result.Inference.Confidence)
		}
		return nil
	})
}
