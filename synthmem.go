package synthmem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/soundprediction/synthmem/pkg/builder"
	"github.com/soundprediction/synthmem/pkg/export"
	"github.com/soundprediction/synthmem/pkg/graph"
	"github.com/soundprediction/synthmem/pkg/nlp"
	"github.com/soundprediction/synthmem/pkg/phrase"
	"github.com/soundprediction/synthmem/pkg/query"
	"github.com/soundprediction/synthmem/pkg/render"
	"github.com/soundprediction/synthmem/pkg/types"
	"github.com/soundprediction/synthmem/pkg/update"
)

// Options tunes a generation run. Zero values select the defaults.
type Options struct {
	// Radius is the neighborhood radius for rendering (default 2).
	Radius int
	// QueriesPerHop requests this many queries per hop distance (default 10).
	QueriesPerHop int
	// UpdatesPerNode is the number of update scenarios per focal node (default 3).
	UpdatesPerNode int
	// FocalNodes bounds how many person nodes are processed (default 3).
	FocalNodes int
	// Workers bounds the focal-node worker pool (default 4).
	Workers int
	// Seed makes node selection and sampling reproducible; 0 derives one
	// from the clock.
	Seed int64
	// Phrase rewrites questions in natural language through the client.
	Phrase bool
	// FocalTimeout bounds the pass over a single focal node, including its
	// phrasing calls. Zero disables the bound.
	FocalTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Radius <= 0 {
		o.Radius = render.DefaultRadius
	}
	if o.QueriesPerHop <= 0 {
		o.QueriesPerHop = 10
	}
	if o.UpdatesPerNode <= 0 {
		o.UpdatesPerNode = 3
	}
	if o.FocalNodes <= 0 {
		o.FocalNodes = 3
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// FocalReport summarizes the outcome for one selected person node.
type FocalReport struct {
	NodeID   string `json:"node_id"`
	NodeName string `json:"node_name"`
	MemoryID string `json:"memory_id,omitempty"`
	Queries  int    `json:"queries"`
	// Shortfall counts queries requested but unavailable, per hop distance.
	Shortfall types.HopCounts `json:"shortfall"`
	Updates   int             `json:"updates"`
	// Skipped is set when no artifacts could be produced for the node.
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// RunResult is the outcome of one generation run over a single world.
type RunResult struct {
	Graph    *graph.Graph
	Memories []*export.Memory
	Reports  []FocalReport
}

// Pipeline orchestrates graph construction and per-focal-node artifact
// generation. A validated graph is frozen for the whole run; the update
// simulator is the only component that mutates anything, and only ever a
// private clone.
type Pipeline struct {
	client  nlp.Client
	builder *builder.Builder
	phraser *phrase.Phraser
	logger  *slog.Logger
	opts    Options
}

// New creates a Pipeline. client may be nil, in which case graphs must be
// supplied externally and questions keep their structural phrasing.
func New(client nlp.Client, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	p := &Pipeline{
		client: client,
		logger: logger,
		opts:   opts,
	}
	if client != nil {
		p.builder = builder.New(client, logger)
	}
	if opts.Phrase {
		p.phraser = phrase.New(client, logger)
	} else {
		p.phraser = phrase.New(nil, logger)
	}
	return p
}

// Run builds a graph for the world description and generates all artifacts.
func (p *Pipeline) Run(ctx context.Context, world string, people, entities int) (*RunResult, error) {
	if p.builder == nil {
		return nil, fmt.Errorf("no text generation client configured: %w", types.ErrEmptyWorld)
	}

	p.logger.Info("building knowledge graph", "world", world, "people", people, "entities", entities)
	g, err := p.builder.Build(ctx, world, people, entities)
	if err != nil {
		return nil, err
	}
	return p.Generate(ctx, g)
}

// Generate runs the per-focal-node passes over an existing graph. The graph
// is validated first and never modified.
func (p *Pipeline) Generate(ctx context.Context, g *graph.Graph) (*RunResult, error) {
	if err := graph.MustValidate(g); err != nil {
		return nil, err
	}

	focals := p.selectFocalNodes(g)
	if len(focals) == 0 {
		return nil, types.ErrNotPersonNode
	}

	result := &RunResult{
		Graph:    g,
		Memories: make([]*export.Memory, len(focals)),
		Reports:  make([]FocalReport, len(focals)),
	}

	sem := make(chan struct{}, p.opts.Workers)
	var wg sync.WaitGroup
	for i, node := range focals {
		wg.Add(1)
		go func(i int, node *types.Node) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				result.Reports[i] = FocalReport{
					NodeID: node.ID, NodeName: node.Name,
					Skipped: true, Reason: ctx.Err().Error(),
				}
				return
			}

			focalCtx := ctx
			if p.opts.FocalTimeout > 0 {
				var cancel context.CancelFunc
				focalCtx, cancel = context.WithTimeout(ctx, p.opts.FocalTimeout)
				defer cancel()
			}

			rng := rand.New(rand.NewSource(p.opts.Seed + int64(i)))
			memory, report := p.processFocal(focalCtx, g, node, rng)
			result.Memories[i] = memory
			result.Reports[i] = report
		}(i, node)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Drop slots for skipped nodes.
	kept := result.Memories[:0]
	for _, m := range result.Memories {
		if m != nil {
			kept = append(kept, m)
		}
	}
	result.Memories = kept
	return result, nil
}

// selectFocalNodes samples up to FocalNodes person nodes deterministically
// for the run's seed, warning when fewer exist than requested.
func (p *Pipeline) selectFocalNodes(g *graph.Graph) []*types.Node {
	persons := g.Persons()
	n := p.opts.FocalNodes
	if len(persons) < n {
		if len(persons) > 0 {
			p.logger.Warn("not enough person nodes for requested focal count",
				"persons", len(persons), "requested", n)
		}
		n = len(persons)
	}

	rng := rand.New(rand.NewSource(p.opts.Seed))
	picked := rng.Perm(len(persons))[:n]
	sort.Ints(picked)

	out := make([]*types.Node, n)
	for i, idx := range picked {
		out[i] = persons[idx]
	}
	return out
}

// processFocal renders, derives, phrases, and simulates for one person node.
// Every failure is isolated into the report; a panic-free run over the other
// nodes is never at stake.
func (p *Pipeline) processFocal(ctx context.Context, g *graph.Graph, node *types.Node, rng *rand.Rand) (*export.Memory, FocalReport) {
	report := FocalReport{NodeID: node.ID, NodeName: node.Name}

	docs, err := render.Render(g, node.ID, p.opts.Radius)
	if err != nil {
		report.Skipped = true
		report.Reason = fmt.Sprintf("render failed: %v", err)
		return nil, report
	}

	counts := types.HopCounts{p.opts.QueriesPerHop, p.opts.QueriesPerHop, p.opts.QueriesPerHop}
	derived, err := query.Derive(g, node.ID, counts, rng)
	if err != nil {
		report.Skipped = true
		report.Reason = fmt.Sprintf("query derivation failed: %v", err)
		return nil, report
	}
	report.Shortfall = derived.Shortfall

	records := p.phraser.Questions(ctx, node.Name, derived.Records)
	report.Queries = len(records)

	var scenarios []*types.UpdateScenario
	for u := 0; u < p.opts.UpdatesPerNode; u++ {
		scenario, err := update.Simulate(g, docs, node.ID, rng, &update.Options{Radius: p.opts.Radius})
		if err != nil {
			if errors.Is(err, &update.NoMutableFactError{}) {
				p.logger.Info("no mutable fact for node, stopping updates", "node", node.ID)
				break
			}
			if errors.Is(err, &update.MutationExhaustedError{}) {
				p.logger.Warn("mutation attempts exhausted for node", "node", node.ID)
				continue
			}
			p.logger.Warn("update simulation failed", "node", node.ID, "error", err)
			continue
		}
		p.phraser.Update(ctx, node.Name, scenario)
		scenarios = append(scenarios, scenario)
	}
	report.Updates = len(scenarios)

	memory := &export.Memory{
		ID:        export.NewMemoryID(),
		Documents: docs,
		Queries:   records,
		Updates:   scenarios,
	}
	report.MemoryID = memory.ID
	return memory, report
}
