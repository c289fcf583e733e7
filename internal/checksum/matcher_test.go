package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumIsStable(t *testing.T) {
	a := Sum([]byte("expediente 123"))
	b := Sum([]byte("expediente 123"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestSumDiffersPerContent(t *testing.T) {
	assert.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
}
