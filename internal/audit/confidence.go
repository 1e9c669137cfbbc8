package audit

import (
	"fmt"
)

// Component weights for the overall confidence score.
const (
	weightEvidenceQuality      = 0.25
	weightSourceReliability    = 0.20
	weightReasoningConsistency = 0.25
	weightHistoricalAccuracy   = 0.15
	weightConsensusAgreement   = 0.15
)

// Defaults when a component has no data to score.
const (
	defaultEvidenceQuality    = 0.5
	defaultSourceReliability  = 0.5
	defaultHistoricalAccuracy = 0.5
	defaultConsensusStandalone = 0.7
	defaultConsensusCollab     = 0.8
)

// Factor classification thresholds.
const (
	positiveFactorFloor = 0.7
	negativeFactorCeil  = 0.5
)

// Breakdown is the multi-factor confidence decomposition for one trail.
type Breakdown struct {
	Overall         float64            `json:"overall"`
	Components      map[string]float64 `json:"components"`
	PositiveFactors []string           `json:"positive_factors"`
	NegativeFactors []string           `json:"negative_factors"`
	NeutralFactors  []string           `json:"neutral_factors"`
}

// computeBreakdown scores a trail. historical is the role's past success
// fraction among trails with any recorded outcome (0.5 without history).
func computeBreakdown(trail *Trail, historical float64) *Breakdown {
	items := trail.allEvidence()

	quality := defaultEvidenceQuality
	reliability := defaultSourceReliability
	if len(items) > 0 {
		var qSum, rSum float64
		for _, item := range items {
			qSum += item.Relevance * item.Reliability
			rSum += item.Type.ReliabilityPrior()
		}
		quality = qSum / float64(len(items))
		reliability = rSum / float64(len(items))
	}

	consistency := reasoningConsistency(trail.Steps)

	consensus := defaultConsensusStandalone
	if trail.Context.Collaboration {
		consensus = defaultConsensusCollab
	}

	components := map[string]float64{
		"evidence_quality":      quality,
		"source_reliability":    reliability,
		"reasoning_consistency": consistency,
		"historical_accuracy":   historical,
		"consensus_agreement":   consensus,
	}

	overall := quality*weightEvidenceQuality +
		reliability*weightSourceReliability +
		consistency*weightReasoningConsistency +
		historical*weightHistoricalAccuracy +
		consensus*weightConsensusAgreement
	overall = clamp01(overall)

	b := &Breakdown{Overall: overall, Components: components}
	for _, name := range []string{
		"evidence_quality", "source_reliability", "reasoning_consistency",
		"historical_accuracy", "consensus_agreement",
	} {
		label := fmt.Sprintf("%s (%.2f)", name, components[name])
		switch {
		case components[name] >= positiveFactorFloor:
			b.PositiveFactors = append(b.PositiveFactors, label)
		case components[name] < negativeFactorCeil:
			b.NegativeFactors = append(b.NegativeFactors, label)
		default:
			b.NeutralFactors = append(b.NeutralFactors, label)
		}
	}
	return b
}

// reasoningConsistency is max(0, 1 - 2*variance) over the step confidences.
// Zero or one step counts as perfectly consistent.
func reasoningConsistency(steps []ReasoningStep) float64 {
	if len(steps) < 2 {
		return 1.0
	}
	var sum float64
	for _, s := range steps {
		sum += s.Confidence
	}
	mean := sum / float64(len(steps))

	var variance float64
	for _, s := range steps {
		d := s.Confidence - mean
		variance += d * d
	}
	variance /= float64(len(steps))

	consistency := 1 - 2*variance
	if consistency < 0 {
		return 0
	}
	return consistency
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
