package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docforge/internal/gap"
	"docforge/internal/graph"
	"docforge/internal/llm"
	"docforge/internal/logger"
	"docforge/internal/prompt"
	"docforge/internal/quality"
	"docforge/internal/schema"
	"docforge/internal/validator"

	"github.com/google/uuid"
)

var ErrNoSchema = errors.New("request has no schema")

// MemoryCategory labels the synthetic answer that carries previously
// generated sections into a section-scoped run.
const MemoryCategory = "Document Memory"

// Request is one document generation job.
type Request struct {
	Schema       *schema.Schema
	Answers      []schema.AnswerItem
	DocumentType string
	Department   string
}

func (r Request) context() prompt.Context {
	return prompt.Context{DocumentType: r.DocumentType, Department: r.Department}
}

// SectionRequest generates one section of a larger document. Schema holds
// only that section; PriorText is what has been generated so far.
type SectionRequest struct {
	Schema       *schema.Schema
	Answers      []schema.AnswerItem
	PriorText    string
	DocumentType string
	Department   string
}

// Result is what a finished run hands back. A failed status is a normal
// outcome: Document still holds the last draft.
type Result struct {
	RunID        string         `json:"run_id"`
	Document     string         `json:"document_text"`
	GapQuestions []gap.Question `json:"gap_questions"`
	Status       Status         `json:"status"`
	Issues       []string       `json:"quality_issues"`
	Scores       map[string]int `json:"quality_scores"`
	Suggestions  []string       `json:"quality_suggestions"`
	RetryCount   int            `json:"retry_count"`
	Report       *Report        `json:"-"`
}

// Pipeline runs the generation state machine. It is safe for concurrent
// use; every run gets its own state, graph and report.
type Pipeline struct {
	model      llm.Model
	validator  *validator.Validator
	thresholds quality.Thresholds
	metrics    *Metrics
	log        *logger.Logger
}

type Option func(*Pipeline)

func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = logger.OrNop(l) }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithValidator(v *validator.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

func WithThresholds(t quality.Thresholds) Option {
	return func(p *Pipeline) { p.thresholds = t }
}

func New(model llm.Model, opts ...Option) *Pipeline {
	p := &Pipeline{
		model:      model,
		validator:  validator.New(),
		thresholds: quality.DefaultThresholds(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run generates a full document.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Schema == nil {
		return nil, ErrNoSchema
	}
	return p.run(ctx, newState(req.Schema, req.Answers, req.context()), "full")
}

// RunSection generates a single section, feeding prior output back in as
// an answer so terminology stays consistent across sections.
func (p *Pipeline) RunSection(ctx context.Context, req SectionRequest) (*Result, error) {
	if req.Schema == nil {
		return nil, ErrNoSchema
	}
	answers := append([]schema.AnswerItem(nil), req.Answers...)
	if prior := strings.TrimSpace(req.PriorText); prior != "" {
		answers = append(answers, schema.AnswerItem{
			Question:   "Sections already written for this document (keep facts, names and terminology consistent with them)",
			Answer:     schema.TextAnswer(prior),
			Category:   MemoryCategory,
			AnswerType: schema.AnswerText,
		})
	}
	c := prompt.Context{DocumentType: req.DocumentType, Department: req.Department}
	return p.run(ctx, newState(req.Schema, answers, c), "section")
}

// AnalyzeGaps runs only the coverage analysis. Failures yield an empty list.
func (p *Pipeline) AnalyzeGaps(ctx context.Context, req Request) []gap.Question {
	if req.Schema == nil {
		return []gap.Question{}
	}
	analyzer := gap.NewAnalyzer(p.modelFor(NodeGapAnalysis, nil), p.log)
	res, err := analyzer.Analyze(ctx, req.Schema, req.Answers, req.context())
	if err != nil {
		p.log.Warn("gap analysis failed", "error", err)
	}
	return append([]gap.Question{}, res.Questions...)
}

func (p *Pipeline) run(ctx context.Context, state State, mode string) (*Result, error) {
	runID := uuid.NewString()
	report := NewReport(runID, mode)
	log := p.log.With("run_id", runID, "mode", mode)
	log.Info("pipeline run started", "table_only", state.Schema.IsTableOnly(), "answers", len(state.Answers))

	final, err := p.build(report, log).Run(ctx, state)
	if err != nil {
		log.Error("pipeline run aborted", "error", err)
		p.metrics.observeAbort()
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	res := &Result{
		RunID:        runID,
		Document:     final.Document,
		GapQuestions: append([]gap.Question{}, final.GapQuestions...),
		Status:       final.Status,
		Issues:       append([]string{}, final.Issues...),
		Scores:       final.Scores,
		Suggestions:  append([]string{}, final.Suggestions...),
		RetryCount:   final.RetryCount,
		Report:       report,
	}
	if res.Scores == nil {
		res.Scores = map[string]int{}
	}
	report.Status = res.Status
	report.RetryCount = res.RetryCount
	p.metrics.observeRun(res)
	log.Info("pipeline run finished", "status", res.Status, "retries", res.RetryCount, "issues", len(res.Issues))
	return res, nil
}

// modelFor wraps the shared model so calls are attributed to a node.
func (p *Pipeline) modelFor(node string, report *Report) llm.Model {
	return llm.ModelFunc(func(ctx context.Context, system, user string) (string, error) {
		out, err := p.model.Invoke(ctx, system, user)
		report.countModelCall()
		p.metrics.observeModelCall(node, err)
		return out, err
	})
}

func (p *Pipeline) build(report *Report, log *logger.Logger) *graph.Graph[State] {
	analyzer := gap.NewAnalyzer(p.modelFor(NodeGapAnalysis, report), log)
	gate := quality.New(p.modelFor(NodeQualityGate, report),
		quality.WithValidator(p.validator),
		quality.WithThresholds(p.thresholds),
		quality.WithLogger(log),
	)
	generator := p.modelFor(NodeGenerate, report)
	repairer := p.modelFor(NodeRepair, report)

	g := graph.New[State]().
		AddNode(NodeGapAnalysis, func(ctx context.Context, s State) (State, error) {
			res, err := analyzer.Analyze(ctx, s.Schema, s.Answers, s.Context)
			if err != nil {
				log.Warn("continuing without gap analysis", "error", err)
				report.AddSignal("gap_analysis_failed", NodeGapAnalysis, "warning", err.Error())
			}
			s.GapQuestions = res.Questions
			s.Supplementary = res.Supplementary
			return s, nil
		}).
		AddNode(NodeAssemble, func(_ context.Context, s State) (State, error) {
			a := prompt.Assemble(s.Schema, s.Answers, s.Supplementary, s.Context)
			s.Prompt = a.System
			s.Instruction = a.Instruction
			s.TableOnly = a.TableOnly
			s.RetryCount = 0
			s.Status = StatusGenerating
			return s, nil
		}).
		AddNode(NodeGenerate, func(ctx context.Context, s State) (State, error) {
			out, err := generator.Invoke(ctx, s.Prompt, s.Instruction)
			if err != nil {
				return s, fmt.Errorf("generate document: %w", err)
			}
			s.Document = llm.CleanMarkdown(out)
			log.Info("draft generated", "chars", len(s.Document))
			return s, nil
		}).
		AddNode(NodeQualityGate, func(ctx context.Context, s State) (State, error) {
			v := gate.Evaluate(ctx, s.Document, s.Schema, s.Context)
			s.Document = v.Document
			s.Scores = v.Scores
			s.Issues = v.Issues
			s.Suggestions = v.Suggestions
			s.Status = StatusFailed
			if v.Passed {
				s.Status = StatusPassed
			}
			if v.ReviewErr != nil {
				report.AddSignal("review_fallback", NodeQualityGate, "warning", v.ReviewErr.Error())
			}
			if s.Status == StatusFailed && s.RetryCount >= MaxRepairs {
				report.AddSignal("repairs_exhausted", NodeQualityGate, "critical",
					fmt.Sprintf("document still failing after %d repairs: %d issues", s.RetryCount, len(s.Issues)))
			}
			log.Info("quality gate", "status", s.Status, "source", v.Source, "issues", len(v.Issues), "retry", s.RetryCount)
			return s, nil
		}).
		AddNode(NodeRepair, func(ctx context.Context, s State) (State, error) {
			system, user := prompt.Repair(s.Prompt, s.Document, s.Issues, s.Suggestions)
			out, err := repairer.Invoke(ctx, system, user)
			if err != nil {
				return s, fmt.Errorf("repair document: %w", err)
			}
			s.Document = llm.CleanMarkdown(out)
			s.RetryCount++
			log.Info("draft repaired", "attempt", s.RetryCount)
			return s, nil
		}).
		AddEdge(NodeGapAnalysis, NodeAssemble).
		AddEdge(NodeAssemble, NodeGenerate).
		AddEdge(NodeGenerate, NodeQualityGate).
		AddConditionalEdge(NodeQualityGate, nextAfterGate).
		AddEdge(NodeRepair, NodeQualityGate).
		SetEntry(NodeGapAnalysis).
		SetMaxSteps(4 + 2*MaxRepairs)

	g.Observe(report.AddStep)
	g.Observe(func(s graph.Step) { p.metrics.observeNode(s.Node, s.Duration.Seconds()) })
	return g
}
