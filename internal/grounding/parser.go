// Package grounding parses the in-band grounding markers the model emits
// alongside plain text, and renders retained detections onto annotated
// image copies.
package grounding

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"ocrgate/internal/domain"
)

// MarkerParser extracts detections from raw model output and returns the
// text with all recognized markers removed. The marker grammar is a
// model output convention, so it stays behind this contract rather than
// being baked into the pipeline.
type MarkerParser interface {
	Parse(raw string) (clean string, dets []domain.Detection)
}

// markerPattern matches an optional <|ref|>label<|/ref|> followed by a
// <|det|>x0,y0,x1,y1<|/det|> block. Coordinates are normalized to [0,1];
// bracketed coordinate lists are tolerated.
var markerPattern = regexp.MustCompile(
	`(?s)(?:<\|ref\|>(.*?)<\|/ref\|>\s*)?<\|det\|>\s*\[*\s*([0-9.eE+\-]+)\s*,\s*([0-9.eE+\-]+)\s*,\s*([0-9.eE+\-]+)\s*,\s*([0-9.eE+\-]+)\s*\]*\s*<\|/det\|>`)

// RegexParser is the default MarkerParser for the DeepSeek-OCR marker
// convention.
type RegexParser struct{}

// NewRegexParser creates the default marker parser.
func NewRegexParser() *RegexParser {
	return &RegexParser{}
}

// Parse scans raw text for grounding markers in order of appearance.
// Every matched marker is removed from the returned text; markers whose
// coordinates are unparseable or outside [0,1] are dropped individually
// without failing the rest of the output. Text without markers is
// returned unchanged.
func (p *RegexParser) Parse(raw string) (string, []domain.Detection) {
	matches := markerPattern.FindAllStringSubmatchIndex(raw, -1)
	if matches == nil {
		return raw, nil
	}

	var clean strings.Builder
	var dets []domain.Detection
	last := 0

	for _, m := range matches {
		clean.WriteString(raw[last:m[0]])
		last = m[1]

		label := ""
		if m[2] >= 0 {
			label = strings.TrimSpace(raw[m[2]:m[3]])
		}

		coords := [4]float64{}
		valid := true
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(raw[m[4+2*i]:m[5+2*i]], 64)
			if err != nil || v < 0 || v > 1 {
				valid = false
				break
			}
			coords[i] = v
		}
		if !valid {
			continue
		}

		dets = append(dets, domain.Detection{
			Label: label,
			X0:    coords[0],
			Y0:    coords[1],
			X1:    coords[2],
			Y1:    coords[3],
		})
	}
	clean.WriteString(raw[last:])

	return clean.String(), dets
}

// Scale converts normalized detections to pixel space for an image of
// the given dimensions. Pure function: same inputs, same boxes.
func Scale(dets []domain.Detection, width, height int) []domain.PixelDetection {
	if len(dets) == 0 {
		return nil
	}
	scaled := make([]domain.PixelDetection, 0, len(dets))
	for _, d := range dets {
		scaled = append(scaled, domain.PixelDetection{
			Label: d.Label,
			X0:    clamp(int(math.Round(d.X0*float64(width))), width),
			Y0:    clamp(int(math.Round(d.Y0*float64(height))), height),
			X1:    clamp(int(math.Round(d.X1*float64(width))), width),
			Y1:    clamp(int(math.Round(d.Y1*float64(height))), height),
		})
	}
	return scaled
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
