package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docforge/internal/gap"
	"docforge/internal/pipeline"
	"docforge/internal/storage"

	"github.com/spf13/cobra"
)

var (
	genInput    input
	genOut      string
	genDocType  string
	genDept     string
	progressive bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a document from a schema and answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		s, name, answers, err := genInput.load(ctx, a.store)
		if err != nil {
			return err
		}
		req := pipeline.Request{Schema: s, Answers: answers, DocumentType: genDocType, Department: genDept}

		fmt.Fprintf(os.Stderr, "🚀 Generating %q (%d answers)...\n", name, len(answers))
		var res *pipeline.Result
		mode := "full"
		if progressive {
			mode = "progressive"
			res, err = a.pipeline.Assemble(ctx, req)
		} else {
			res, err = a.pipeline.Run(ctx, req)
		}
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		return a.finish(ctx, name, mode, res, genOut)
	},
}

var (
	secInput input
	secIndex int
	secPrior string
	secOut   string
)

var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Generate one top-level section, using earlier output as memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		s, name, answers, err := secInput.load(ctx, a.store)
		if err != nil {
			return err
		}
		slice, ok := s.Slice(secIndex)
		if !ok {
			return fmt.Errorf("section index %d out of range (schema has %d sections)", secIndex, len(s.Sections))
		}
		var prior string
		if secPrior != "" {
			data, err := os.ReadFile(secPrior)
			if err != nil {
				return fmt.Errorf("read prior text: %w", err)
			}
			prior = string(data)
		}

		res, err := a.pipeline.RunSection(ctx, pipeline.SectionRequest{
			Schema:       slice,
			Answers:      answers,
			PriorText:    prior,
			DocumentType: genDocType,
			Department:   genDept,
		})
		if err != nil {
			return fmt.Errorf("section generation failed: %w", err)
		}
		return a.finish(ctx, name, "section", res, secOut)
	},
}

var gapsInput input

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "List follow-up questions for schema sections the answers do not cover",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		s, name, answers, err := gapsInput.load(ctx, a.store)
		if err != nil {
			return err
		}
		questions := a.pipeline.AnalyzeGaps(ctx, pipeline.Request{Schema: s, Answers: answers, DocumentType: genDocType, Department: genDept})
		if err := a.store.SaveGapQuestions(ctx, name, gap.AsAnswerItems(questions)); err != nil {
			return fmt.Errorf("save gap questions: %w", err)
		}
		fmt.Fprintf(os.Stderr, "🔍 %d follow-up questions stored for %q\n", len(questions), name)
		return writeJSON(os.Stdout, questions)
	},
}

var validateInput input

var validateCmd = &cobra.Command{
	Use:   "validate <document.md>",
	Short: "Check a Markdown document against a schema without calling a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		s, _, _, err := validateInput.load(ctx, a.store)
		if err != nil {
			return err
		}
		doc, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		errs := a.validator().Validate(string(doc), s)
		if len(errs) == 0 {
			fmt.Println("✅ Document matches the schema.")
			return nil
		}
		for _, e := range errs {
			fmt.Println("  - " + e)
		}
		return fmt.Errorf("%d structural problems found", len(errs))
	},
}

func init() {
	genInput.bind(generateCmd)
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Write the document here instead of stdout")
	generateCmd.Flags().BoolVar(&progressive, "progressive", false, "Generate section by section and assemble the result")

	secInput.bind(sectionCmd)
	sectionCmd.Flags().IntVarP(&secIndex, "index", "i", 0, "Zero-based index of the top-level section")
	sectionCmd.Flags().StringVar(&secPrior, "prior", "", "File holding the sections generated so far")
	sectionCmd.Flags().StringVarP(&secOut, "out", "o", "", "Write the section here instead of stdout")

	gapsInput.bind(gapsCmd)
	validateInput.bind(validateCmd)

	for _, c := range []*cobra.Command{generateCmd, sectionCmd, gapsCmd} {
		c.Flags().StringVar(&genDocType, "doc-type", "", "Document type used in prompts")
		c.Flags().StringVar(&genDept, "department", "", "Department used in prompts")
	}
}

// finish persists a run, writes its document and report, and prints a
// short verdict. A failed quality status is reported, not returned.
func (a *app) finish(ctx context.Context, name, mode string, res *pipeline.Result, out string) error {
	if err := a.store.SaveRun(ctx, recordFromResult(name, mode, res)); err != nil {
		a.log.Warn("failed to store run", "run_id", res.RunID, "error", err)
	}
	if len(res.GapQuestions) > 0 {
		if err := a.store.SaveGapQuestions(ctx, name, gap.AsAnswerItems(res.GapQuestions)); err != nil {
			a.log.Warn("failed to store gap questions", "error", err)
		}
	}
	if reportPath != "" {
		if err := res.Report.Save(reportPath); err != nil {
			a.log.Warn("failed to write report", "path", reportPath, "error", err)
		}
	}

	if err := writeDocument(out, res.Document); err != nil {
		return err
	}
	printVerdict(os.Stderr, res)
	return nil
}

func recordFromResult(name, mode string, res *pipeline.Result) storage.RunRecord {
	return storage.RunRecord{
		ID:          res.RunID,
		SchemaName:  name,
		Mode:        mode,
		Status:      string(res.Status),
		RetryCount:  res.RetryCount,
		Document:    res.Document,
		Issues:      res.Issues,
		Scores:      res.Scores,
		Suggestions: res.Suggestions,
	}
}

func writeDocument(path, doc string) error {
	if path == "" {
		_, err := fmt.Println(doc)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(doc+"\n"), 0644)
}

func printVerdict(w io.Writer, res *pipeline.Result) {
	icon := "✅"
	if res.Status != pipeline.StatusPassed {
		icon = "⚠️"
	}
	fmt.Fprintf(w, "%s Run %s: %s after %d repairs\n", icon, res.RunID, res.Status, res.RetryCount)
	for _, issue := range res.Issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	if len(res.GapQuestions) > 0 {
		qs := make([]string, 0, len(res.GapQuestions))
		for _, q := range res.GapQuestions {
			qs = append(qs, q.Question)
		}
		fmt.Fprintf(w, "🔍 Open questions: %s\n", strings.Join(qs, " | "))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
