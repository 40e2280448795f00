package splitters

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// NewTokenLength returns a LengthFunc that counts cl100k_base tokens, the
// encoding used by gpt-4, gpt-3.5-turbo and the text-embedding-3 models.
func NewTokenLength() (LengthFunc, error) {
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return func(s string) int {
		return len(tke.Encode(s, nil, nil))
	}, nil
}
