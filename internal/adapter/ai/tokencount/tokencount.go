// Package tokencount estimates token usage for model prompts.
//
// It uses tiktoken-go with an offline BPE loader so no network access is
// needed at startup. Gemini tokenizers are not published; cl100k_base is a
// close enough approximation for sizing and logging purposes.
package tokencount

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

var loaderOnce sync.Once

// Counter provides thread-safe token counting with a cached encoding.
type Counter struct {
	mu  sync.Mutex
	enc *tiktoken.Tiktoken
}

// NewCounter creates a token counter backed by the offline cl100k_base encoding.
func NewCounter() *Counter {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})
	return &Counter{}
}

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enc != nil {
		return c.enc, nil
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	c.enc = enc
	return enc, nil
}

// CountTokens counts the tokens in text. The model parameter is accepted for
// call-site symmetry but all models share the cl100k_base approximation.
// When the encoding cannot be loaded it falls back to a rough ~4 chars per
// token estimate, so a count is always available for logging.
func (c *Counter) CountTokens(text, _ string) int {
	enc, err := c.encoding()
	if err != nil {
		return estimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// estimateTokens approximates ~4 chars per token.
func estimateTokens(text string) int {
	return len(text) / 4
}
