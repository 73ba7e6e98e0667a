package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"docforge/internal/pipeline"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Manifest lists independent generation jobs for the batch command.
type Manifest struct {
	OutDir string `yaml:"out_dir"`
	Jobs   []Job  `yaml:"jobs"`
}

type Job struct {
	Name         string `yaml:"name"`
	Schema       string `yaml:"schema"`
	Answers      string `yaml:"answers"`
	Out          string `yaml:"out"`
	DocumentType string `yaml:"document_type"`
	Department   string `yaml:"department"`
	Progressive  bool   `yaml:"progressive"`
}

// LoadManifest reads a batch manifest; relative paths resolve against
// the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s has no jobs", path)
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	m.OutDir = resolve(m.OutDir)
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.Schema == "" {
			return nil, fmt.Errorf("job %d: schema is required", i)
		}
		j.Schema = resolve(j.Schema)
		j.Answers = resolve(j.Answers)
		if j.Out == "" {
			name := j.Name
			if name == "" {
				name = fmt.Sprintf("job-%d", i+1)
			}
			j.Out = filepath.Join(m.OutDir, slug(name)+".md")
		} else {
			j.Out = resolve(j.Out)
		}
	}
	return &m, nil
}

var parallel int

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Run several independent generation jobs concurrently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := LoadManifest(args[0])
		if err != nil {
			return err
		}
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer a.close()

		results, err := a.runBatch(ctx, m.Jobs, parallel)
		for i, res := range results {
			if res == nil {
				continue
			}
			fmt.Fprintf(os.Stderr, "[%s] ", m.Jobs[i].Out)
			printVerdict(os.Stderr, res)
		}
		return err
	},
}

func init() {
	batchCmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "Maximum number of jobs running at once")
}

// runBatch runs jobs with at most limit in flight. Each job gets its own
// pipeline state; the first hard error cancels jobs not yet started.
func (a *app) runBatch(ctx context.Context, jobs []Job, limit int) ([]*pipeline.Result, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]*pipeline.Result, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			in := input{schemaFile: job.Schema, answersFile: job.Answers, name: job.Name}
			s, name, answers, err := in.load(gctx, a.store)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.Schema, err)
			}
			req := pipeline.Request{Schema: s, Answers: answers, DocumentType: job.DocumentType, Department: job.Department}

			mode := "full"
			var res *pipeline.Result
			if job.Progressive {
				mode = "progressive"
				res, err = a.pipeline.Assemble(gctx, req)
			} else {
				res, err = a.pipeline.Run(gctx, req)
			}
			if err != nil {
				return fmt.Errorf("job %s: %w", name, err)
			}

			if err := a.store.SaveRun(gctx, recordFromResult(name, mode, res)); err != nil {
				a.log.Warn("failed to store run", "run_id", res.RunID, "error", err)
			}
			if err := writeDocument(job.Out, res.Document); err != nil {
				return fmt.Errorf("job %s: write %s: %w", name, job.Out, err)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	return results, g.Wait()
}
