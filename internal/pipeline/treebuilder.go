package pipeline

import (
	"context"
	"fmt"

	"distillery/internal/progress"
	"distillery/internal/types"
)

// TreeBuilder grows the topic tree level by level until every parent at
// the previous level has tagsPerLevel children. An already complete tree
// yields zero generation calls, so Build is idempotent.
type TreeBuilder struct {
	svc     TreeService
	tracker *progress.Tracker
	cfg     types.JobConfig
	project string
}

// NewTreeBuilder wires a builder for one run. project is the resolved
// display name; it becomes the root of every tag path.
func NewTreeBuilder(svc TreeService, tr *progress.Tracker, cfg types.JobConfig, project string) *TreeBuilder {
	return &TreeBuilder{svc: svc, tracker: tr, cfg: cfg, project: project}
}

// tagJob is one pending generation call: fill the deficit under one parent.
type tagJob struct {
	parentID    string
	parentLabel string
	tagPath     string
	count       int
}

// Build walks levels 1..cfg.Levels, generating only the missing children
// under each parent. Item failures are reported, not fatal; the deficit
// simply survives into the next run.
func (b *TreeBuilder) Build(ctx context.Context) error {
	for level := 1; level <= b.cfg.Levels; level++ {
		b.tracker.SetStage(progress.StageLevel(level))

		jobs, err := b.levelJobs(ctx, level)
		if err != nil {
			return fmt.Errorf("tree level %d: %w", level, err)
		}
		if len(jobs) == 0 {
			b.tracker.Logf("level %d already complete", level)
			continue
		}

		pending := 0
		for _, j := range jobs {
			pending += j.count
		}
		b.tracker.Add(progress.FieldTagsTotal, pending)
		b.tracker.Logf("level %d: %d tags to generate under %d parents", level, pending, len(jobs))

		report, err := forEachBatch(ctx, b.cfg.ConcurrencyLimit, jobs, b.runJob, nil)
		if err != nil {
			return fmt.Errorf("tree level %d: %w", level, err)
		}
		for _, ferr := range report.Failed {
			b.tracker.Logf("level %d: %v", level, ferr)
		}
	}
	return nil
}

func (b *TreeBuilder) runJob(ctx context.Context, j tagJob) error {
	created, err := b.svc.GenerateTags(ctx, types.GenerateTagsRequest{
		ParentTagID: j.parentID,
		ParentLabel: j.parentLabel,
		TagPath:     j.tagPath,
		Count:       j.count,
		Model:       b.cfg.Model,
		Language:    b.cfg.Language,
	})
	if err != nil {
		return fmt.Errorf("generate tags under %q: %w", j.parentLabel, err)
	}
	b.tracker.Add(progress.FieldTagsBuilt, len(created))
	return nil
}

// levelJobs computes the per-parent deficits for one level. Level 1 hangs
// off the implicit project node, so the topic stands in as the parent
// label and the tag path is just the project name.
func (b *TreeBuilder) levelJobs(ctx context.Context, level int) ([]tagJob, error) {
	tags, err := b.svc.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	children := childCounts(tags)

	if level == 1 {
		if n := b.cfg.TagsPerLevel - children[""]; n > 0 {
			return []tagJob{{parentLabel: b.cfg.Topic, tagPath: b.project, count: n}}, nil
		}
		return nil, nil
	}

	depth := tagDepths(tags)
	var jobs []tagJob
	for _, parent := range tags {
		if depth[parent.ID] != level-1 {
			continue
		}
		n := b.cfg.TagsPerLevel - children[parent.ID]
		if n <= 0 {
			continue
		}
		jobs = append(jobs, tagJob{
			parentID:    parent.ID,
			parentLabel: parent.Label,
			tagPath:     b.childPath(parent),
			count:       n,
		})
	}
	return jobs, nil
}

// childPath is the ancestor path stored on the parent's children. Stored
// paths must start with the project name, so a stray base gets the
// project prepended.
func (b *TreeBuilder) childPath(parent types.Tag) string {
	base := parent.Path
	if base == "" {
		base = b.project
	} else if parent.PathRoot() != b.project {
		base = types.JoinPath(b.project, base)
	}
	return types.JoinPath(base, parent.Label)
}

func childCounts(tags []types.Tag) map[string]int {
	counts := make(map[string]int, len(tags))
	for _, t := range tags {
		counts[t.ParentID]++
	}
	return counts
}

// tagDepths resolves each tag's 1-indexed level by walking ParentID links.
// Broken links count from wherever the chain ends.
func tagDepths(tags []types.Tag) map[string]int {
	byID := make(map[string]types.Tag, len(tags))
	for _, t := range tags {
		byID[t.ID] = t
	}
	depth := make(map[string]int, len(tags))
	var resolve func(id string) int
	resolve = func(id string) int {
		t, ok := byID[id]
		if !ok {
			return 0
		}
		if d, ok := depth[id]; ok {
			return d
		}
		d := 1
		if t.ParentID != "" {
			d = resolve(t.ParentID) + 1
		}
		depth[id] = d
		return d
	}
	for _, t := range tags {
		resolve(t.ID)
	}
	return depth
}
