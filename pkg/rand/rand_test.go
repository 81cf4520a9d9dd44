package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := Token(32)
		assert.Len(t, token, 32)
		assert.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}
