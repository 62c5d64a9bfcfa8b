// Package phrase rewrites structurally-generated questions and update
// requests into natural language through the text generation client. The
// core (path, answer) contract never depends on this step: when no client is
// configured the structural phrasing passes through unchanged.
package phrase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/soundprediction/synthmem/pkg/nlp"
	"github.com/soundprediction/synthmem/pkg/types"
)

const questionSystemPrompt = "You rewrite structured retrieval questions about a person's " +
	"knowledge base into natural first-person questions the person might ask an assistant. " +
	"Keep each question answerable with exactly the given answer. Respond with JSON: " +
	`{"questions": ["..."]} in the same order as the input.`

const updateSystemPrompt = "You rewrite a structured fact change into short natural-language " +
	"update requests the person might give an assistant, stating the new fact. Respond with " +
	`JSON: {"queries": ["...", "..."]} containing two alternative phrasings.`

// Phraser rewrites questions through a client. A nil client is valid and
// leaves structural phrasings untouched.
type Phraser struct {
	client nlp.Client
	logger *slog.Logger
}

// New creates a Phraser. Both arguments may be nil.
func New(client nlp.Client, logger *slog.Logger) *Phraser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Phraser{client: client, logger: logger}
}

// Questions rewrites the Question text of each record in place-order and
// returns the records. Failures fall back to the structural phrasing for the
// whole batch; the records' paths and answers are never altered.
func (p *Phraser) Questions(ctx context.Context, focalName string, records []types.QueryRecord) []types.QueryRecord {
	if p.client == nil || len(records) == 0 {
		return records
	}

	type item struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	items := make([]item, len(records))
	for i, r := range records {
		items[i] = item{Question: r.Question, Answer: r.Answer}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return records
	}

	var decoded struct {
		Questions []string `json:"questions"`
	}
	resp, err := p.client.ChatWithStructuredOutput(ctx, []types.Message{
		nlp.NewSystemMessage(questionSystemPrompt + "\n\nThe person is " + focalName + "."),
		nlp.NewUserMessage(string(payload)),
	}, &decoded)
	if err != nil {
		p.logger.Warn("question phrasing failed, keeping structural phrasing", "error", err)
		return records
	}
	if err := nlp.DecodeStructured("phrase_questions", resp.Content, &decoded); err != nil {
		p.logger.Warn("question phrasing undecodable, keeping structural phrasing", "error", err)
		return records
	}
	if len(decoded.Questions) != len(records) {
		p.logger.Warn("question phrasing count mismatch, keeping structural phrasing",
			"want", len(records), "got", len(decoded.Questions))
		return records
	}

	out := make([]types.QueryRecord, len(records))
	copy(out, records)
	for i, q := range decoded.Questions {
		if strings.TrimSpace(q) != "" {
			out[i].Question = q
		}
	}
	return out
}

// Update phrases one simulated edit as natural-language update requests and
// stores them on the scenario. Without a client, a single structural phrasing
// is produced from the new fact path.
func (p *Phraser) Update(ctx context.Context, focalName string, scenario *types.UpdateScenario) {
	if p.client == nil {
		scenario.Queries = []string{structuralUpdate(scenario)}
		return
	}

	payload, err := json.Marshal(map[string]any{
		"old_path": scenario.OldPath,
		"new_path": scenario.NewPath,
		"kind":     scenario.Kind,
	})
	if err != nil {
		scenario.Queries = []string{structuralUpdate(scenario)}
		return
	}

	var decoded struct {
		Queries []string `json:"queries"`
	}
	resp, err := p.client.ChatWithStructuredOutput(ctx, []types.Message{
		nlp.NewSystemMessage(updateSystemPrompt + "\n\nThe person is " + focalName + "."),
		nlp.NewUserMessage(string(payload)),
	}, &decoded)
	if err != nil {
		p.logger.Warn("update phrasing failed, keeping structural phrasing", "error", err)
		scenario.Queries = []string{structuralUpdate(scenario)}
		return
	}
	if err := nlp.DecodeStructured("phrase_update", resp.Content, &decoded); err != nil || len(decoded.Queries) == 0 {
		p.logger.Warn("update phrasing undecodable, keeping structural phrasing", "error", err)
		scenario.Queries = []string{structuralUpdate(scenario)}
		return
	}
	scenario.Queries = decoded.Queries
}

// structuralUpdate renders the new fact path as a deterministic update request.
func structuralUpdate(s *types.UpdateScenario) string {
	if len(s.NewPath) == 0 {
		return ""
	}
	return fmt.Sprintf("Update my records: %s.", strings.Join(s.NewPath, " "))
}
