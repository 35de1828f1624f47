package reservation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCodeFormat(t *testing.T) {
	code := GenerateCode(time.Now())

	assert.True(t, strings.HasPrefix(code, "ING-"), "code %q missing prefix", code)
	assert.Equal(t, code, strings.ToUpper(code), "code must be upper-cased")

	parts := strings.Split(code, "-")
	assert.Len(t, parts, 3)
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], randDigits)
}

func TestGenerateCodeUniqueness(t *testing.T) {
	// Same instant for every call, so uniqueness rests entirely on the
	// random component.
	now := time.Now()
	seen := make(map[string]struct{}, 20000)
	for i := 0; i < 20000; i++ {
		code := GenerateCode(now)
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code after %d generations: %s", i, code)
		}
		seen[code] = struct{}{}
	}
}
