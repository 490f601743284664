package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

func init() {
	rootCmd.AddCommand(checkAccessCmd)
}

var checkAccessCmd = &cobra.Command{
	Use:   "check-access <clearance> <classification>",
	Short: "Report whether a clearance may read a classification",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheckAccess,
}

func runCheckAccess(cmd *cobra.Command, args []string) error {
	clearance := models.Classification(strings.ToUpper(args[0]))
	classification := models.Classification(strings.ToUpper(args[1]))
	if !classification.Valid() {
		return fmt.Errorf("unknown classification %q", args[1])
	}

	if rules.HasAccess(clearance, classification) {
		fmt.Fprintf(cmd.OutOrStdout(), "ALLOWED: %s may read %s\n", clearance, classification)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "DENIED: %s may not read %s\n", clearance, classification)
	return nil
}
