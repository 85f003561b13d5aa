// Package tokens enforces the prompt token budget checked before any
// generation call.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/domain"
)

// Counter counts the tokens in a prompt.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts with a tiktoken encoding.
type TiktokenCounter struct {
	codec tokenizer.Codec
}

// NewTiktokenCounter returns a counter for encoding.
func NewTiktokenCounter(encoding tokenizer.Encoding) (*TiktokenCounter, error) {
	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	return &TiktokenCounter{codec: codec}, nil
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text string) int {
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return NewEstimator().Count(text)
	}
	return len(ids)
}

// Estimator approximates token counts from character length. It is the
// fallback when no encoding is available.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Count implements Counter.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	return max(int(float64(len([]rune(text)))/e.CharsPerToken), 1)
}

var (
	defaultOnce    sync.Once
	defaultCounter Counter
)

// DefaultCounter is a shared cl100k_base counter, or the estimator when the
// encoding cannot be loaded.
func DefaultCounter() Counter {
	defaultOnce.Do(func() {
		c, err := NewTiktokenCounter(tokenizer.Cl100kBase)
		if err != nil {
			defaultCounter = NewEstimator()
			return
		}
		defaultCounter = c
	})
	return defaultCounter
}

// Budget rejects prompts over a token limit.
type Budget struct {
	counter Counter
	limit   int
}

// NewBudget returns a budget of limit tokens. A limit of zero or less
// disables the check. A nil counter uses DefaultCounter.
func NewBudget(limit int, counter Counter) *Budget {
	if counter == nil {
		counter = DefaultCounter()
	}
	return &Budget{counter: counter, limit: limit}
}

// Limit returns the configured limit.
func (b *Budget) Limit() int {
	return b.limit
}

// Check returns a configuration error when prompt exceeds the budget.
func (b *Budget) Check(prompt string) error {
	if b == nil || b.limit <= 0 {
		return nil
	}
	if n := b.counter.Count(prompt); n > b.limit {
		return domain.ErrConfiguration(fmt.Sprintf("prompt is %d tokens, the limit is %d", n, b.limit)).
			WithCode(domain.ErrorCodePromptTooLong).
			WithParam("prompt")
	}
	return nil
}
