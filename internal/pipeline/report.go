package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docforge/internal/graph"
)

type ReportSignal struct {
	Code     string `json:"code"`
	Stage    string `json:"stage"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

type StageMetric struct {
	Name       string `json:"name"`
	Step       int    `json:"step"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// SectionMetric records one section of a progressive assembly.
type SectionMetric struct {
	Title      string   `json:"title"`
	Status     Status   `json:"status"`
	RetryCount int      `json:"retry_count"`
	Issues     []string `json:"issues,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	FailedStages      int            `json:"failed_stages"`
	ModelCalls        int            `json:"model_calls"`
	SectionCount      int            `json:"section_count,omitempty"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report is the per-run trace written next to the generated document.
type Report struct {
	Version     string          `json:"version"`
	RunID       string          `json:"run_id"`
	Mode        string          `json:"mode"`
	GeneratedAt string          `json:"generated_at"`
	Status      Status          `json:"status"`
	RetryCount  int             `json:"retry_count"`
	Stages      []StageMetric   `json:"stages"`
	Sections    []SectionMetric `json:"sections,omitempty"`
	Signals     []ReportSignal  `json:"signals,omitempty"`
	Summary     ReportSummary   `json:"summary"`

	modelCalls int
}

func NewReport(runID, mode string) *Report {
	return &Report{
		Version:     "v1",
		RunID:       runID,
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Stages:      []StageMetric{},
		Signals:     []ReportSignal{},
	}
}

// AddStep records one executed graph node.
func (r *Report) AddStep(s graph.Step) {
	if r == nil || strings.TrimSpace(s.Node) == "" {
		return
	}
	m := StageMetric{
		Name:       s.Node,
		Step:       s.Index,
		Status:     "ok",
		StartedAt:  s.Started.UTC().Format(time.RFC3339Nano),
		DurationMS: s.Duration.Milliseconds(),
	}
	if s.Err != nil {
		m.Status = "error"
		m.Error = s.Err.Error()
	}
	r.Stages = append(r.Stages, m)
}

func (r *Report) AddSignal(code, stage, severity, message string) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.Signals = append(r.Signals, s)
}

func (r *Report) AddSection(m SectionMetric) {
	if r == nil || strings.TrimSpace(m.Title) == "" {
		return
	}
	r.Sections = append(r.Sections, m)
}

// Merge appends another run's stages and signals, as used when sections
// are generated one by one.
func (r *Report) Merge(other *Report) {
	if r == nil || other == nil {
		return
	}
	r.Stages = append(r.Stages, other.Stages...)
	r.Signals = append(r.Signals, other.Signals...)
	r.modelCalls += other.modelCalls
}

func (r *Report) countModelCall() {
	if r != nil {
		r.modelCalls++
	}
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{"critical": 0, "warning": 0, "info": 0}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi, pj := signalPriority(r.Signals[i].Severity), signalPriority(r.Signals[j].Severity)
		if pi == pj {
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		FailedStages:      failed,
		ModelCalls:        r.modelCalls,
		SectionCount:      len(r.Sections),
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
