package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

var (
	classifyCategory   string
	classifyConfidence float64
	classifyFormat     string
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().StringVarP(&classifyCategory, "category", "c", "general", "Threat category")
	classifyCmd.Flags().Float64Var(&classifyConfidence, "confidence", 0.5, "Confidence score between 0 and 1")
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "text", "Output format (text|json)")
}

var classifyCmd = &cobra.Command{
	Use:   "classify <content>",
	Short: "Dry-run the threat rules against report content",
	Long: "Runs the classifier, impact estimator and notification router on the given\n" +
		"content exactly as a submission would, without storing anything.",
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

type classification struct {
	ThreatLevel        models.ThreatLevel `json:"threat_level"`
	EstimatedImpact    int64              `json:"estimated_impact_kes"`
	AgenciesToNotify   []string           `json:"agencies_to_notify"`
	RecommendedActions []string           `json:"recommended_actions"`
	ResponseTimeHours  float64            `json:"estimated_response_time_hours"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	if classifyConfidence < 0 || classifyConfidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}

	level := rules.ClassifyThreat(args[0], classifyCategory, classifyConfidence)
	agencies := rules.AgenciesToNotify(level, classifyCategory)
	result := classification{
		ThreatLevel:        level,
		EstimatedImpact:    rules.EstimateReportImpact(level, classifyCategory),
		AgenciesToNotify:   agencies,
		RecommendedActions: rules.SubmissionActions(level),
		ResponseTimeHours:  rules.EstimateResponseTime(level, len(agencies)),
	}

	out := cmd.OutOrStdout()
	if classifyFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Threat level:    %s\n", result.ThreatLevel)
	fmt.Fprintf(out, "Impact (KES):    %d\n", result.EstimatedImpact)
	fmt.Fprintf(out, "Notify:          %s\n", strings.Join(result.AgenciesToNotify, ", "))
	fmt.Fprintf(out, "Response (h):    %.1f\n", result.ResponseTimeHours)
	for _, action := range result.RecommendedActions {
		fmt.Fprintf(out, "  - %s\n", action)
	}
	return nil
}
