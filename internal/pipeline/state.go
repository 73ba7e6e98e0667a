package pipeline

import (
	"docforge/internal/gap"
	"docforge/internal/graph"
	"docforge/internal/prompt"
	"docforge/internal/schema"
)

// Status is the verdict carried by a run's state.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
)

// MaxRepairs caps repair attempts per run, so a run makes at most
// 1 + MaxRepairs generation calls.
const MaxRepairs = 2

const (
	NodeGapAnalysis = "gap_analysis"
	NodeAssemble    = "assemble_prompt"
	NodeGenerate    = "generate"
	NodeQualityGate = "quality_gate"
	NodeRepair      = "repair"
)

// afterGate is the transition table out of the quality gate, keyed by
// status and by whether the repair budget still allows another attempt.
var afterGate = map[Status]map[bool]string{
	StatusPassed: {true: graph.End, false: graph.End},
	StatusFailed: {true: NodeRepair, false: graph.End},
}

// nextAfterGate routes a state leaving the quality gate.
func nextAfterGate(s State) string {
	byBudget, ok := afterGate[s.Status]
	if !ok {
		return graph.End
	}
	return byBudget[s.RetryCount < MaxRepairs]
}

// State is threaded through one run. Each node takes it by value and
// returns the updated copy.
type State struct {
	Schema        *schema.Schema
	Answers       []schema.AnswerItem
	Context       prompt.Context
	GapQuestions  []gap.Question
	Supplementary string
	Prompt        string
	Instruction   string
	TableOnly     bool
	Document      string
	Scores        map[string]int
	Issues        []string
	Suggestions   []string
	RetryCount    int
	Status        Status
}

func newState(s *schema.Schema, answers []schema.AnswerItem, c prompt.Context) State {
	return State{
		Schema:     s,
		Answers:    answers,
		Context:    c,
		RetryCount: 0,
		Status:     StatusGenerating,
	}
}
