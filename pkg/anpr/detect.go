package anpr

import (
	"image"
)

// Candidate is a scored plate-region proposal.
type Candidate struct {
	Rect       image.Rectangle
	Confidence float64
}

// Detector produces scored plate-region candidates for a preprocessed frame.
// Implementations must be safe for concurrent use by multiple lanes.
type Detector interface {
	Detect(img image.Image) []Candidate
}

// GradientDetector locates plate-like regions by their dense horizontal
// gradient texture: stamped characters produce many short vertical strokes,
// so a window with plate aspect ratio and a high edge fraction is a strong
// candidate. The scan runs over a summed-area table of the edge map, one
// window placement costs four reads.
type GradientDetector struct {
	// GradientFloor is the minimum absolute gray step counted as an edge.
	GradientFloor int
	// Aspect is the plate width/height ratio used for scan windows.
	Aspect float64
	// Scales are the window heights (px) tried against the frame.
	Scales []int
	// MinDensity discards windows whose edge fraction is below this floor.
	MinDensity float64
}

// NewGradientDetector returns a detector with parameters tuned for
// single-row plates at typical lane-camera distances. The parameters are
// fixed at startup and the detector is treated as read-only afterwards.
func NewGradientDetector() *GradientDetector {
	return &GradientDetector{
		GradientFloor: 40,
		Aspect:        4.6,
		Scales:        []int{24, 36, 54, 80},
		MinDensity:    0.14,
	}
}

// Detect scans the frame and returns every window clearing MinDensity,
// overlap-suppressed, with confidence proportional to edge density.
func (d *GradientDetector) Detect(img image.Image) []Candidate {
	if img == nil {
		return nil
	}
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w < 8 || h < 8 {
		return nil
	}
	edges := d.edgeMap(img)
	ints := make([]int, w*h)
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += edges[y*w+x]
			idx := y*w + x
			if y == 0 {
				ints[idx] = rowSum
			} else {
				ints[idx] = ints[(y-1)*w+x] + rowSum
			}
		}
	}

	var cands []Candidate
	for _, wh := range d.Scales {
		ww := int(float64(wh) * d.Aspect)
		if wh > h || ww > w {
			continue
		}
		stride := wh / 3
		if stride < 4 {
			stride = 4
		}
		area := wh * ww
		for y := 0; y+wh <= h; y += stride {
			for x := 0; x+ww <= w; x += stride {
				sum := rectSum(ints, w, x, y, x+ww-1, y+wh-1)
				density := float64(sum) / float64(area)
				if density < d.MinDensity {
					continue
				}
				conf := density / 0.5
				if conf > 1 {
					conf = 1
				}
				cands = append(cands, Candidate{
					Rect:       image.Rect(x, y, x+ww, y+wh),
					Confidence: conf,
				})
			}
		}
	}
	return suppressOverlaps(cands)
}

// edgeMap marks pixels whose horizontal gray step exceeds GradientFloor.
func (d *GradientDetector) edgeMap(img image.Image) []int {
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	gray := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			gray[y*w+x] = int((r + g + bb) / 3 >> 8)
		}
	}
	edges := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 1; x < w; x++ {
			diff := gray[y*w+x] - gray[y*w+x-1]
			if diff < 0 {
				diff = -diff
			}
			if diff >= d.GradientFloor {
				edges[y*w+x] = 1
			}
		}
	}
	return edges
}

// suppressOverlaps keeps the strongest candidate of each overlapping group.
func suppressOverlaps(cands []Candidate) []Candidate {
	var out []Candidate
	for _, c := range cands {
		replaced := false
		for i, kept := range out {
			if !c.Rect.Overlaps(kept.Rect) {
				continue
			}
			inter := c.Rect.Intersect(kept.Rect)
			smaller := rectArea(c.Rect)
			if a := rectArea(kept.Rect); a < smaller {
				smaller = a
			}
			if smaller == 0 || float64(rectArea(inter))/float64(smaller) < 0.3 {
				continue
			}
			if c.Confidence > kept.Confidence {
				out[i] = c
			}
			replaced = true
			break
		}
		if !replaced {
			out = append(out, c)
		}
	}
	return out
}

func rectArea(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
