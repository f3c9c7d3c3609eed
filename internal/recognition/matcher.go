package recognition

import "errors"

// MatchResult is what a face comparison yields, regardless of provider.
type MatchResult struct {
    MatchPercentage float64
    FaceID          string
}

// FaceMatcher compares an enrolled face image against a live capture. The
// cloud provider integration lives behind this interface; the sync and
// verification flows only care about the score.
type FaceMatcher interface {
    CompareFaces(enrolledImageRef, liveImageRef string) (*MatchResult, error)
}

// DefaultMatchThreshold is the score a face comparison must reach before the
// candidate is considered verified.
const DefaultMatchThreshold = 96.5

// Passes reports whether a match score clears the threshold.
func Passes(score, threshold float64) bool {
    if threshold <= 0 {
        threshold = DefaultMatchThreshold
    }
    return score >= threshold
}

// Disabled is wired when no provider is configured. Verification endpoints
// then report the provider as unavailable instead of guessing a score.
type Disabled struct{}

func (Disabled) CompareFaces(_, _ string) (*MatchResult, error) {
    return nil, errors.New("face matching provider not configured")
}
