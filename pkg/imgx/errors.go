package imgx

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidImage is matched (via errors.Is) by every InvalidImageError
var ErrInvalidImage = errors.New("Invalid image")

// InvalidImageError is returned when input bytes cannot be decoded, or the image has zero width or height
type InvalidImageError struct {
	Reason string
	Err    error // Underlying decoder error, if any
}

func (e *InvalidImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Invalid image: %v: %v", e.Reason, e.Err)
	}
	return "Invalid image: " + e.Reason
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

func (e *InvalidImageError) Is(target error) bool {
	return target == ErrInvalidImage
}

// OutOfBoundsError is returned when a region extends beyond the image.
// Callers are expected to clamp regions before extracting them.
type OutOfBoundsError struct {
	Region image.Rectangle
	Bounds image.Rectangle
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("Region %v is outside of image bounds %v", e.Region, e.Bounds)
}

// EncodingError is returned when an image cannot be encoded
type EncodingError struct {
	Format Format
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("Failed to encode %v: %v", e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
