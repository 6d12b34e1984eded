package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnique_SortsAndDeduplicates(t *testing.T) {
	a := MustParse("00000000-0000-0000-0000-000000000002")
	b := MustParse("00000000-0000-0000-0000-000000000001")

	got := Unique([]ID{a, b, a})

	assert.Equal(t, []ID{b, a}, got)
}

func TestNew_IsVersion7(t *testing.T) {
	v := New()
	assert.False(t, IsNil(v))
	assert.Equal(t, 7, int(v.Version()))
}
