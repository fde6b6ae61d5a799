package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator_Counts(t *testing.T) {
	gen := NewSequentialIDGenerator("inf")

	assert.Equal(t, "inf-0001", gen.Generate())
	assert.Equal(t, "inf-0002", gen.Generate())
	assert.Equal(t, "inf-0003", gen.Generate())
}

func TestSequentialIDGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "id-0001", gen.Generate())
}
