package agent

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tokenEncoder *tiktoken.Tiktoken
	encoderOnce  sync.Once
	encoderErr   error
)

// initTokenEncoder loads the cl100k_base encoding once.
func initTokenEncoder() error {
	encoderOnce.Do(func() {
		tokenEncoder, encoderErr = tiktoken.GetEncoding("cl100k_base")
	})
	return encoderErr
}

// truncateTokens cuts text to at most max tokens. Without an encoder it falls
// back to four runes per token.
func truncateTokens(text string, max int) string {
	if max <= 0 || text == "" {
		return text
	}
	if err := initTokenEncoder(); err != nil {
		limit := max * 4
		if utf8.RuneCountInString(text) <= limit {
			return text
		}
		return string([]rune(text)[:limit])
	}
	tokens := tokenEncoder.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return tokenEncoder.Decode(tokens[:max])
}
