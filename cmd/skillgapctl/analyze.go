package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/extract"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyse a resume file or text against a role",
	Long:  "Extracts text from a PDF, DOCX, TXT, MD or CSV resume (or reads --text, or stdin with \"-\") and prints the skill-gap result.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

var (
	analyzeText   string
	analyzeRole   string
	analyzePick   bool
	analyzeFormat string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeText, "text", "t", "", "resume text to analyse instead of a file")
	analyzeCmd.Flags().StringVarP(&analyzeRole, "role", "r", "", "target role id (default: best match)")
	analyzeCmd.Flags().BoolVarP(&analyzePick, "pick", "p", false, "choose the target role interactively")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "output format: text or json")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text, err := resumeText(cmd, args)
	if err != nil {
		return err
	}

	eng, reg, err := localEngine(ctx)
	if err != nil {
		return err
	}
	roleID := analyzeRole
	if analyzePick {
		if roleID, err = pickRole(reg.Current().RoleSummaries()); err != nil {
			return err
		}
	}

	res, err := eng.Analyze(ctx, engine.Request{Text: text, RoleID: roleID})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyzeFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(out, res)
	return nil
}

func resumeText(cmd *cobra.Command, args []string) (string, error) {
	if analyzeText != "" {
		return analyzeText, nil
	}
	if len(args) == 0 {
		return "", errors.New("a resume file, \"-\" or --text is required")
	}
	if args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	name := filepath.Base(args[0])
	return extract.ExtractTextFromBytes(cmd.Context(), data, extract.DetectMimeType("", name, data), name)
}

func pickRole(roles []catalog.RoleSummary) (string, error) {
	if len(roles) == 0 {
		return "", errors.New("catalog has no roles")
	}
	const bestMatch = "(best match)"
	items := []string{bestMatch}
	for _, r := range roles {
		items = append(items, r.RoleID+"  "+r.Title)
	}
	sel := promptui.Select{
		Label: "Target role",
		Items: items,
		Size:  12,
	}
	_, chosen, err := sel.Run()
	if err != nil {
		return "", err
	}
	if chosen == bestMatch {
		return "", nil
	}
	return strings.Fields(chosen)[0], nil
}

func printResult(w io.Writer, res *engine.Result) {
	if res.SelectedRole != nil {
		fmt.Fprintf(w, "Role:     %s (%s)\n", res.SelectedRole.Title, res.SelectedRole.RoleID)
		fmt.Fprintf(w, "Score:    %d (%s)\n", res.SelectedRole.Score, res.SelectedRole.Suitability)
		fmt.Fprintf(w, "Coverage: required %.0f%%, nice %.0f%%\n", res.SelectedRole.RequiredCoverage*100, res.SelectedRole.NiceCoverage*100)
	}
	if res.NoGoodMatch {
		fmt.Fprintln(w, "No good match in the catalog.")
	}
	if len(res.Skills) > 0 {
		names := make([]string, 0, len(res.Skills))
		for _, s := range res.Skills {
			name := s.Skill
			if s.Inferred {
				name += "*"
			}
			names = append(names, name)
		}
		fmt.Fprintf(w, "Skills:   %s\n", strings.Join(names, ", "))
	}
	for _, g := range res.Gaps {
		kind := "nice-to-have"
		if g.Required {
			kind = "required"
		}
		fmt.Fprintf(w, "Gap %d:    %s (%s)\n", g.Priority+1, g.Skill, kind)
	}
	for _, o := range res.OtherRecommendations {
		fmt.Fprintf(w, "Also:     %s %d\n", o.Title, o.Score)
	}
	if res.Critique.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", res.Critique.Summary)
	}
}
