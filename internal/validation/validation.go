// Package validation provides common validation functions for identifiers.
// This package has no dependencies on other internal packages to avoid import cycles.
package validation

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidLandmarkID indicates a landmark ID does not match the LP-XXXXX form.
var ErrInvalidLandmarkID = errors.New("invalid landmark_id")

var landmarkIDPattern = regexp.MustCompile(`^LP-\d{5}$`)

// LandmarkID normalizes a landmark ID (upper-casing it) and validates it
// against the canonical LP-XXXXX form used verbatim in vector IDs and
// metadata throughout the pipeline.
func LandmarkID(id string) (string, error) {
	norm := strings.ToUpper(strings.TrimSpace(id))
	if !landmarkIDPattern.MatchString(norm) {
		return "", ErrInvalidLandmarkID
	}
	return norm, nil
}
