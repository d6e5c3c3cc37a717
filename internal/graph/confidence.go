package graph

// Confidence scores for edges. Same-file resolution is the most certain;
// anything deferred to the workspace resolver is scored lower.
const (
	ConfidenceLocal         = 0.90
	ConfidencePendingImport = 0.80
	ConfidencePending       = 0.70
	ConfidenceCrossFileMax  = 0.80
	AmbiguityPenalty        = 0.90
)

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// CrossFileConfidence scores a pending edge promoted by the workspace
// resolver. candidates is the number of valid targets the name matched.
func CrossFileConfidence(pending float64, candidates int) float64 {
	c := min(pending, ConfidenceCrossFileMax)
	if candidates > 1 {
		c *= AmbiguityPenalty
	}
	return ClampConfidence(c)
}
