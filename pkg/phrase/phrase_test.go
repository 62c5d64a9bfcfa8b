package phrase

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/synthmem/pkg/types"
)

type stubClient struct {
	content string
	err     error
}

func (c *stubClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.result()
}

func (c *stubClient) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema any) (*types.Response, error) {
	return c.result()
}

func (c *stubClient) result() (*types.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &types.Response{Content: c.content}, nil
}

func (c *stubClient) Close() error { return nil }

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func records() []types.QueryRecord {
	return []types.QueryRecord{
		{HopDistance: 0, Question: "What is the age of Ada?", Answer: "36"},
		{HopDistance: 1, Question: "Who or what does Ada works at?", Answer: "Pangorio"},
	}
}

func TestQuestionsNilClientPassesThrough(t *testing.T) {
	p := New(nil, discard())
	in := records()
	out := p.Questions(context.Background(), "Ada", in)
	assert.Equal(t, in, out)
}

func TestQuestionsRewrites(t *testing.T) {
	p := New(&stubClient{content: `{"questions": ["How old am I?", "Where do I work?"]}`}, discard())
	in := records()

	out := p.Questions(context.Background(), "Ada", in)
	require.Len(t, out, 2)
	assert.Equal(t, "How old am I?", out[0].Question)
	assert.Equal(t, "Where do I work?", out[1].Question)

	// Answers and the input slice stay untouched.
	assert.Equal(t, "36", out[0].Answer)
	assert.Equal(t, "What is the age of Ada?", in[0].Question)
}

func TestQuestionsCountMismatchFallsBack(t *testing.T) {
	p := New(&stubClient{content: `{"questions": ["only one"]}`}, discard())
	in := records()
	out := p.Questions(context.Background(), "Ada", in)
	assert.Equal(t, in, out)
}

func TestQuestionsClientErrorFallsBack(t *testing.T) {
	p := New(&stubClient{err: errors.New("unavailable")}, discard())
	in := records()
	out := p.Questions(context.Background(), "Ada", in)
	assert.Equal(t, in, out)
}

func TestUpdateStructuralFallback(t *testing.T) {
	p := New(nil, discard())
	s := &types.UpdateScenario{
		Kind:    types.AttributeUpdate,
		NewPath: []string{"Ada Moreno", "age=37"},
	}
	p.Update(context.Background(), "Ada Moreno", s)
	require.Len(t, s.Queries, 1)
	assert.Equal(t, "Update my records: Ada Moreno age=37.", s.Queries[0])
}

func TestUpdatePhrased(t *testing.T) {
	p := New(&stubClient{content: `{"queries": ["I just turned 37.", "Set my age to 37."]}`}, discard())
	s := &types.UpdateScenario{
		Kind:    types.AttributeUpdate,
		OldPath: []string{"Ada Moreno", "age=36"},
		NewPath: []string{"Ada Moreno", "age=37"},
	}
	p.Update(context.Background(), "Ada Moreno", s)
	assert.Equal(t, []string{"I just turned 37.", "Set my age to 37."}, s.Queries)
}
