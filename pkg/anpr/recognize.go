package anpr

import (
	"fmt"
	"image"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

const plateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789- "

// plateRE accepts canonical plate strings: 4-10 alphanumerics containing at
// least one letter and at least one digit.
var plateRE = regexp.MustCompile(`^[A-Z0-9]{4,10}$`)

// Recognizer turns a cropped plate region into raw text. Implementations
// must be safe for concurrent use by multiple lanes.
type Recognizer interface {
	Text(img image.Image) (string, error)
}

// TesseractRecognizer reads plate crops with gosseract. Three passes are
// run per crop (binarized, inverted for light-on-dark plates, and
// adaptive-threshold with dilation for uneven lighting); the most
// plate-like output wins.
type TesseractRecognizer struct{}

// NewTesseractRecognizer probes the Tesseract engine once. A probe failure
// means the engine or its language data is missing; that is fatal at
// startup, never a per-frame condition.
func NewTesseractRecognizer() (*TesseractRecognizer, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}
	for _, l := range langs {
		if l == "eng" {
			return &TesseractRecognizer{}, nil
		}
	}
	return nil, fmt.Errorf("%w: eng language data not installed", ErrOCRUnavailable)
}

// Text OCRs a cropped plate region and returns the raw engine output of the
// best pass. Cleanup and validation are the caller's concern.
func (t *TesseractRecognizer) Text(img image.Image) (string, error) {
	if img == nil || img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return "", ErrInvalidImage
	}
	prep := imaging.Grayscale(img)
	if prep.Bounds().Dy() < 100 {
		prep = imaging.Resize(prep, 0, 120, imaging.Lanczos)
	}
	prep = imaging.AdjustContrast(prep, 20)
	bin := binarize(prep, 140)
	adv := dilate(adaptiveThreshold(prep, 15, 7), 1)

	bestText := ""
	bestScore := -1
	for _, variant := range []image.Image{bin, imaging.Invert(bin), adv} {
		text, err := ocrPass(variant)
		if err != nil {
			log.Printf("plate OCR pass failed: %v", err)
			continue
		}
		text = normalizeOCRText(text)
		if sc := plateLikeness(text); sc > bestScore {
			bestScore = sc
			bestText = text
		}
	}
	if bestScore < 0 {
		return "", fmt.Errorf("plate ocr: all passes failed")
	}
	log.Printf("plate OCR raw=%q score=%d", snippet(bestText, 60), bestScore)
	return bestText, nil
}

// ocrPass writes the variant to a temp file and runs one gosseract pass
// with the plate whitelist and single-line segmentation.
func ocrPass(img image.Image) (string, error) {
	tmpFile, err := os.CreateTemp("", "plate-*.png")
	if err != nil {
		return "", err
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	defer os.Remove(tmp)
	if err := imaging.Save(img, tmp); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	_ = client.SetWhitelist(plateWhitelist)
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_LINE)
	client.SetImage(tmp)
	return client.Text()
}

// plateLikeness scores raw OCR output by how much of it survives cleanup
// into a plausible plate. Used only to pick between passes.
func plateLikeness(text string) int {
	cleaned := CleanPlate(text)
	s := len(cleaned)
	if ValidPlate(cleaned) {
		s += 10
	}
	if _, ok := RepairPlate(cleaned); ok {
		s += 5
	}
	return s
}

// CleanPlate uppercases raw OCR text and strips everything that is not a
// letter or digit. The cleaned string is returned even when it fails
// validation; validity is a separate signal.
func CleanPlate(text string) string {
	up := strings.ToUpper(text)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, up)
}

// ValidPlate reports whether a cleaned string matches the canonical plate
// format: 4-10 alphanumerics with at least one letter and one digit.
func ValidPlate(plate string) bool {
	if !plateRE.MatchString(plate) {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range plate {
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		} else {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// RepairPlate applies the usual OCR confusions (O/Q->0, I/L->1, S->5,
// B->8, Z->2) to the trailing digit block of a plate whose raw form fails
// validation. Returns the repaired plate and true only when the repair
// produces a valid plate different from the input.
func RepairPlate(plate string) (string, bool) {
	if plate == "" {
		return "", false
	}
	// repair only the trailing run of confusable characters; letters at
	// the front of a plate are usually genuine
	repl := map[rune]rune{'O': '0', 'Q': '0', 'I': '1', 'L': '1', 'S': '5', 'B': '8', 'Z': '2'}
	runes := []rune(plate)
	changed := false
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if r >= '0' && r <= '9' {
			continue
		}
		sub, ok := repl[r]
		if !ok {
			break
		}
		runes[i] = sub
		changed = true
	}
	repaired := string(runes)
	if !changed || repaired == plate || !ValidPlate(repaired) {
		return "", false
	}
	return repaired, true
}
