package anpr

import "errors"

// ErrInvalidImage is returned for nil or zero-dimension input frames.
var ErrInvalidImage = errors.New("invalid image")

// ErrOCRUnavailable is returned when the Tesseract engine cannot initialize.
var ErrOCRUnavailable = errors.New("ocr engine unavailable")
