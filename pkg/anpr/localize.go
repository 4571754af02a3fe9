package anpr

import "image"

// Localizer wraps a Detector with the candidate-selection policy: highest
// confidence wins, area breaks ties, anything under MinConfidence is
// rejected.
type Localizer struct {
	det           Detector
	MinConfidence float64
}

// NewLocalizer builds a Localizer over the given detector.
func NewLocalizer(det Detector, minConfidence float64) *Localizer {
	return &Localizer{det: det, MinConfidence: minConfidence}
}

// Locate returns the best plate region and true, or a zero rectangle and
// false when no candidate clears the threshold. A miss is an expected
// outcome for frames without a readable plate, not an error.
func (l *Localizer) Locate(img image.Image) (image.Rectangle, bool) {
	cands := l.det.Detect(img)
	best := Candidate{}
	found := false
	for _, c := range cands {
		if c.Confidence < l.MinConfidence {
			continue
		}
		if !found {
			best = c
			found = true
			continue
		}
		replace := false
		if c.Confidence > best.Confidence {
			replace = true
		} else if c.Confidence == best.Confidence {
			if rectArea(c.Rect) > rectArea(best.Rect) {
				replace = true
			} else if rectArea(c.Rect) == rectArea(best.Rect) {
				// deterministic final tie-break: topmost, then leftmost
				if c.Rect.Min.Y < best.Rect.Min.Y ||
					(c.Rect.Min.Y == best.Rect.Min.Y && c.Rect.Min.X < best.Rect.Min.X) {
					replace = true
				}
			}
		}
		if replace {
			best = c
		}
	}
	if !found {
		return image.Rectangle{}, false
	}
	return best.Rect, true
}
