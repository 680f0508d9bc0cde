package constants

// OutcomeStatus is the per-image status reported by a batch run.
type OutcomeStatus string

// Stable values (these strings show up in logs and batch reports).
const (
	OutcomeProcessed OutcomeStatus = "PROCESSED" // record produced
	OutcomeSkipped   OutcomeStatus = "SKIPPED"   // OCR returned no text
	OutcomeFailed    OutcomeStatus = "FAILED"    // OCR call failed for this image
	OutcomeCancelled OutcomeStatus = "CANCELLED" // never scheduled, batch was cancelled
)

// ImageConfidenceThreshold flags OCR output below this mean token confidence for review.
const ImageConfidenceThreshold = 0.6
