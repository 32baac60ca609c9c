package grounding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrgate/internal/domain"
	"ocrgate/internal/grounding"
)

func TestParse_NoMarkers_ReturnsTextUnchanged(t *testing.T) {
	p := grounding.NewRegexParser()

	raw := "Invoice #42\nTotal: $13.37\nno markers here"
	clean, dets := p.Parse(raw)

	assert.Equal(t, raw, clean)
	assert.Empty(t, dets)
}

func TestParse_LabeledMarker(t *testing.T) {
	p := grounding.NewRegexParser()

	raw := "before <|ref|>title<|/ref|><|det|>0.1,0.2,0.5,0.6<|/det|> after"
	clean, dets := p.Parse(raw)

	assert.Equal(t, "before  after", clean)
	require.Len(t, dets, 1)
	assert.Equal(t, "title", dets[0].Label)
	assert.InDelta(t, 0.1, dets[0].X0, 1e-9)
	assert.InDelta(t, 0.2, dets[0].Y0, 1e-9)
	assert.InDelta(t, 0.5, dets[0].X1, 1e-9)
	assert.InDelta(t, 0.6, dets[0].Y1, 1e-9)
}

func TestParse_UnlabeledMarker(t *testing.T) {
	p := grounding.NewRegexParser()

	clean, dets := p.Parse("x<|det|>0,0,1,1<|/det|>y")

	assert.Equal(t, "xy", clean)
	require.Len(t, dets, 1)
	assert.Empty(t, dets[0].Label)
}

func TestParse_BracketedCoordinates(t *testing.T) {
	p := grounding.NewRegexParser()

	_, dets := p.Parse("<|ref|>figure<|/ref|><|det|>[[0.25, 0.25, 0.75, 0.75]]<|/det|>")

	require.Len(t, dets, 1)
	assert.Equal(t, "figure", dets[0].Label)
	assert.InDelta(t, 0.25, dets[0].X0, 1e-9)
}

func TestParse_PreservesSurroundingTextByteForByte(t *testing.T) {
	p := grounding.NewRegexParser()

	prefix := "line one\n\ttabbed  spaces "
	suffix := " trailing\nline two"
	clean, dets := p.Parse(prefix + "<|det|>0.1,0.1,0.9,0.9<|/det|>" + suffix)

	assert.Equal(t, prefix+suffix, clean)
	assert.Len(t, dets, 1)
}

func TestParse_MalformedMarkerDroppedIndividually(t *testing.T) {
	p := grounding.NewRegexParser()

	// The second marker's coordinates are out of range; it must be
	// dropped without discarding the first detection or the text.
	raw := "a<|det|>0.1,0.1,0.2,0.2<|/det|>b<|det|>0.1,0.1,1.5,0.2<|/det|>c"
	clean, dets := p.Parse(raw)

	assert.Equal(t, "abc", clean)
	require.Len(t, dets, 1)
	assert.InDelta(t, 0.2, dets[0].X1, 1e-9)
}

func TestParse_UnparseableNumbersDropped(t *testing.T) {
	p := grounding.NewRegexParser()

	clean, dets := p.Parse("x<|det|>0.1,0..2,0.3,0.4<|/det|>y")

	assert.Equal(t, "xy", clean)
	assert.Empty(t, dets)
}

func TestParse_OrderOfAppearance(t *testing.T) {
	p := grounding.NewRegexParser()

	_, dets := p.Parse(
		"<|ref|>first<|/ref|><|det|>0.1,0.1,0.2,0.2<|/det|>" +
			"<|ref|>second<|/ref|><|det|>0.3,0.3,0.4,0.4<|/det|>" +
			"<|ref|>third<|/ref|><|det|>0.5,0.5,0.6,0.6<|/det|>")

	require.Len(t, dets, 3)
	assert.Equal(t, "first", dets[0].Label)
	assert.Equal(t, "second", dets[1].Label)
	assert.Equal(t, "third", dets[2].Label)
}

func TestParse_Idempotent(t *testing.T) {
	p := grounding.NewRegexParser()

	clean, _ := p.Parse("header <|det|>0.1,0.1,0.9,0.9<|/det|> footer")
	again, dets := p.Parse(clean)

	assert.Equal(t, clean, again)
	assert.Empty(t, dets)
}

func TestScale_RoundsAndIsPure(t *testing.T) {
	dets := []domain.Detection{
		{Label: "a", X0: 0.105, Y0: 0.2, X1: 0.499, Y1: 0.75},
	}

	first := grounding.Scale(dets, 200, 100)
	second := grounding.Scale(dets, 200, 100)

	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, 21, first[0].X0)  // round(0.105*200)
	assert.Equal(t, 20, first[0].Y0)  // round(0.2*100)
	assert.Equal(t, 100, first[0].X1) // round(0.499*200)
	assert.Equal(t, 75, first[0].Y1)  // round(0.75*100)
}

func TestScale_ClampsToImageBounds(t *testing.T) {
	dets := []domain.Detection{{X0: 0, Y0: 0, X1: 1, Y1: 1}}

	scaled := grounding.Scale(dets, 640, 480)

	require.Len(t, scaled, 1)
	assert.Equal(t, 0, scaled[0].X0)
	assert.Equal(t, 640, scaled[0].X1)
	assert.Equal(t, 480, scaled[0].Y1)
}

func TestScale_Empty(t *testing.T) {
	assert.Nil(t, grounding.Scale(nil, 100, 100))
}
