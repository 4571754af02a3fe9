package anpr

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

// paintStripes fills rect with a 2px-on 2px-off vertical stripe pattern,
// the same high-frequency horizontal texture stamped characters produce.
func paintStripes(img *image.NRGBA, rect image.Rectangle) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if (x/2)%2 == 0 {
				c = color.NRGBA{0, 0, 0, 255}
			}
			img.Set(x, y, c)
		}
	}
}

func TestGradientDetectorFindsStripedRegion(t *testing.T) {
	frame := imaging.New(640, 200, color.NRGBA{255, 255, 255, 255})
	plate := image.Rect(100, 60, 300, 100)
	paintStripes(frame, plate)

	det := NewGradientDetector()
	cands := det.Detect(frame)
	if len(cands) == 0 {
		t.Fatal("no candidates on a striped frame")
	}

	loc := NewLocalizer(det, 0.45)
	got, ok := loc.Locate(frame)
	if !ok {
		t.Fatal("localizer rejected every candidate")
	}
	if !got.Overlaps(plate) {
		t.Fatalf("best region %v does not overlap the stripes at %v", got, plate)
	}
}

func TestGradientDetectorQuietOnUniformFrame(t *testing.T) {
	frame := imaging.New(640, 200, color.NRGBA{128, 128, 128, 255})
	if cands := NewGradientDetector().Detect(frame); len(cands) != 0 {
		t.Fatalf("uniform frame produced %d candidates", len(cands))
	}
}

func TestGradientDetectorTinyFrame(t *testing.T) {
	frame := imaging.New(4, 4, color.NRGBA{0, 0, 0, 255})
	if cands := NewGradientDetector().Detect(frame); cands != nil {
		t.Fatalf("tiny frame produced candidates: %v", cands)
	}
	if cands := NewGradientDetector().Detect(nil); cands != nil {
		t.Fatal("nil frame produced candidates")
	}
}
