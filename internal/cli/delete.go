package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document>",
		Short: "Delete a document and everything derived from it",
		Long: `Delete a document with its facts, bindings, clauses, slots and
cross-references. References from other documents into it become
unresolved and override chains across the family are rebuilt.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.engine.DeleteDocument(commandContext(cmd), args[0]); err != nil {
				return s.formatter.Fail("delete failed", err)
			}
			if rootOpts.Format == "json" {
				return s.formatter.Success(map[string]string{"deleted": args[0]})
			}
			return s.formatter.Success(fmt.Sprintf("Deleted %s", args[0]))
		},
	}
	return cmd
}
