package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"landmarkvector/internal/domain"
)

func TestSlugIsIdempotent(t *testing.T) {
	titles := []string{
		"Flatiron Building",
		"St. Patrick's Cathedral (Manhattan)",
		"123 Main St./Annex",
		"already_slugged",
	}
	for _, title := range titles {
		once := Slug(title)
		twice := Slug(once)
		assert.Equal(t, once, twice, "slug of %q should be idempotent", title)
	}
}

func TestVectorIDGenerationIsDeterministic(t *testing.T) {
	id1 := NewPDFVectorID("LP-00123", 4)
	id2 := NewPDFVectorID("LP-00123", 4)
	assert.Equal(t, id1, id2)
	assert.True(t, ValidID(id1))
	assert.Equal(t, domain.SourcePDF, SourceTypeFromID(id1))

	w1 := NewWikipediaVectorID("Flatiron Building", "LP-00123", 2)
	w2 := NewWikipediaVectorID("Flatiron Building", "LP-00123", 2)
	assert.Equal(t, w1, w2)
	assert.True(t, ValidID(w1))
	assert.Equal(t, domain.SourceWikipedia, SourceTypeFromID(w1))
}

func TestVectorIDsDifferByIndex(t *testing.T) {
	a := NewPDFVectorID("LP-00123", 0)
	b := NewPDFVectorID("LP-00123", 1)
	assert.NotEqual(t, a, b)
}

func TestValidIDRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"LP-123-chunk-0",    // too few digits
		"lp-00123-chunk-0",  // wrong case
		"LP-00123-chunk",    // missing index
		"wiki--LP-00123-chunk-0",
	}
	for _, c := range cases {
		assert.False(t, ValidID(c), "expected %q to be invalid", c)
	}
}
