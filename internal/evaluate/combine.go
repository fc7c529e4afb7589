package evaluate

import "github.com/interloq/interloq/pkg/scoring"

// Fusion weights. Pronunciation leans on accuracy; content leans harder on
// meaning preservation.
const (
	pronAccuracyWeight = 0.5
	pronFluencyWeight  = 0.3
	pronProsodyWeight  = 0.2

	contentAccuracyWeight     = 0.6
	contentCompletenessWeight = 0.25
	contentFluencyWeight      = 0.15
)

// PronunciationAverage is the weighted acoustic sub-total. When the backend
// reported no prosody, fluency stands in for it.
func PronunciationAverage(p *scoring.PronunciationScore) float64 {
	prosody := float64(p.Prosody)
	if !p.HasProsody() {
		prosody = float64(p.Fluency)
	}
	return float64(p.Accuracy)*pronAccuracyWeight +
		float64(p.Fluency)*pronFluencyWeight +
		prosody*pronProsodyWeight
}

// ContentAverage is the weighted semantic sub-total.
func ContentAverage(c *scoring.ContentScore) float64 {
	return float64(c.Accuracy)*contentAccuracyWeight +
		float64(c.Completeness)*contentCompletenessWeight +
		float64(c.Fluency)*contentFluencyWeight
}

// Combine fuses the two sub-scores into one overall score. With both
// present the halves weigh equally; with one present that half carries the
// whole score; with neither the result is zero.
func Combine(p *scoring.PronunciationScore, c *scoring.ContentScore) int {
	switch {
	case p == nil && c == nil:
		return 0
	case p != nil && c != nil:
		return scoring.Clamp(PronunciationAverage(p)*0.5 + ContentAverage(c)*0.5)
	case p != nil:
		return scoring.Clamp(PronunciationAverage(p))
	default:
		return scoring.Clamp(ContentAverage(c))
	}
}
