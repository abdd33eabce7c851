package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel scripts one outcome per attempt.
type fakeModel struct {
	calls     int
	responses []string
	errs      []error
	block     bool
}

func (f *fakeModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	i := f.calls
	f.calls++

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	text := ""
	if i < len(f.responses) {
		text = f.responses[i]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func TestInvokeSuccess(t *testing.T) {
	model := &fakeModel{responses: []string{"answer"}}
	c := NewWithModel(model, Config{MaxRetries: 2})

	text, err := c.Invoke(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, 1, model.calls)
}

func TestInvokeRetriesThenSucceeds(t *testing.T) {
	model := &fakeModel{
		errs:      []error{errors.New("transient"), nil},
		responses: []string{"", "answer"},
	}
	c := NewWithModel(model, Config{MaxRetries: 2})

	text, err := c.Invoke(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, 2, model.calls)
}

func TestInvokeExhaustsBoundedAttempts(t *testing.T) {
	boom := errors.New("model down")
	model := &fakeModel{errs: []error{boom, boom, boom, boom}}
	c := NewWithModel(model, Config{MaxRetries: 2})

	_, err := c.Invoke(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	// max_retries + 1 total calls, never more.
	assert.Equal(t, 3, model.calls)
}

func TestInvokeEmptyResponseIsFailure(t *testing.T) {
	model := &fakeModel{responses: []string{"", ""}}
	c := NewWithModel(model, Config{MaxRetries: 1})

	_, err := c.Invoke(context.Background(), "sys", "user")
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, model.calls)
}

func TestInvokePerAttemptTimeout(t *testing.T) {
	model := &fakeModel{block: true}
	c := NewWithModel(model, Config{Timeout: 20 * time.Millisecond, MaxRetries: 1})

	start := time.Now()
	_, err := c.Invoke(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 2, model.calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvokeStopsWhenCallerContextCanceled(t *testing.T) {
	model := &fakeModel{block: true}
	c := NewWithModel(model, Config{Timeout: time.Minute, MaxRetries: 5})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Invoke(ctx, "sys", "user")
	require.Error(t, err)
	// No further attempts once the delivery's own context is gone.
	assert.Equal(t, 1, model.calls)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "bedrock"})
	assert.Error(t, err)
}
