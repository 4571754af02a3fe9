package anpr

import (
	"image"
	"testing"
)

type scriptDetector struct {
	cands []Candidate
}

func (d scriptDetector) Detect(img image.Image) []Candidate { return d.cands }

func TestLocateHighestConfidenceWins(t *testing.T) {
	det := scriptDetector{cands: []Candidate{
		{Rect: image.Rect(0, 0, 100, 25), Confidence: 0.6},
		{Rect: image.Rect(200, 0, 300, 25), Confidence: 0.9},
		{Rect: image.Rect(0, 100, 100, 125), Confidence: 0.7},
	}}
	loc := NewLocalizer(det, 0.45)
	got, ok := loc.Locate(image.NewNRGBA(image.Rect(0, 0, 640, 480)))
	if !ok {
		t.Fatal("expected a region")
	}
	if want := image.Rect(200, 0, 300, 25); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLocateAreaBreaksConfidenceTie(t *testing.T) {
	det := scriptDetector{cands: []Candidate{
		{Rect: image.Rect(0, 0, 100, 25), Confidence: 0.8},
		{Rect: image.Rect(200, 0, 360, 40), Confidence: 0.8},
	}}
	loc := NewLocalizer(det, 0.45)
	got, ok := loc.Locate(image.NewNRGBA(image.Rect(0, 0, 640, 480)))
	if !ok {
		t.Fatal("expected a region")
	}
	if want := image.Rect(200, 0, 360, 40); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLocatePositionBreaksFullTie(t *testing.T) {
	det := scriptDetector{cands: []Candidate{
		{Rect: image.Rect(300, 50, 400, 75), Confidence: 0.8},
		{Rect: image.Rect(100, 50, 200, 75), Confidence: 0.8},
		{Rect: image.Rect(100, 200, 200, 225), Confidence: 0.8},
	}}
	loc := NewLocalizer(det, 0.45)
	got, ok := loc.Locate(image.NewNRGBA(image.Rect(0, 0, 640, 480)))
	if !ok {
		t.Fatal("expected a region")
	}
	if want := image.Rect(100, 50, 200, 75); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLocateRejectsBelowThreshold(t *testing.T) {
	det := scriptDetector{cands: []Candidate{
		{Rect: image.Rect(0, 0, 100, 25), Confidence: 0.3},
		{Rect: image.Rect(200, 0, 300, 25), Confidence: 0.44},
	}}
	loc := NewLocalizer(det, 0.45)
	if _, ok := loc.Locate(image.NewNRGBA(image.Rect(0, 0, 640, 480))); ok {
		t.Fatal("candidates below the floor must be rejected")
	}
}

func TestLocateNoCandidates(t *testing.T) {
	loc := NewLocalizer(scriptDetector{}, 0.45)
	if _, ok := loc.Locate(image.NewNRGBA(image.Rect(0, 0, 640, 480))); ok {
		t.Fatal("empty detector output must report a miss")
	}
}
