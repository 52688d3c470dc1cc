package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hperssn/steady/internal/assessment"
	"github.com/hperssn/steady/internal/domain"
)

var (
	questionsPath string
	sessionsPath  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check question and session catalogs",
	Long: `Load the question and session catalogs and report the first problem
found. Without flags the embedded catalogs are checked.

Examples:
  steady validate
  steady validate --questions ./questions.json --sessions ./sessions.json`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&questionsPath, "questions", "", "Question catalog JSON file")
	validateCmd.Flags().StringVar(&sessionsPath, "sessions", "", "Session catalog JSON file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	questions, err := assessment.LoadCatalogFile(questionsPath)
	if err != nil {
		return fmt.Errorf("questions: %w", err)
	}
	sessions, err := domain.LoadCatalogFile(sessionsPath)
	if err != nil {
		return fmt.Errorf("sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, cat := range assessment.Categories {
		fmt.Fprintf(out, "%-10s %d questions, max score %d\n", cat, questions.Count(cat), questions.ScoreDomainMax(cat))
	}
	fmt.Fprintf(out, "sessions   %d\n", len(sessions.List(domain.Filter{})))
	return nil
}
