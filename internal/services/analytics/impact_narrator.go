package analytics

import (
	"MarketRegime/internal/domain/models"
	domsvc "MarketRegime/internal/domain/service"
)

const (
	ImpactReinforcesBullish = "This news aligns positively with the current market trend. Positive developments combined with bullish technical signals increase the probability of continued upward movement."
	ImpactReinforcesBearish = "Negative news reinforces the existing bearish trend. This may increase downside risk unless strong buying support emerges."
	ImpactUnconfirmed       = "While the news sentiment is positive, the price trend has not yet confirmed it. The stock may need further confirmation before a sustained move."
	ImpactTechnicalStrength = "Despite negative news, the stock is technically strong. If fundamentals dominate, the impact may be limited in the short term."
	ImpactMixed             = "The news impact appears mixed. Market participants may wait for further clarity before taking decisive positions."
)

// ImpactNarrator maps sentiment and signal to a fixed explanation and grades
// how well the technical signal agrees with the news flow.
type ImpactNarrator struct{}

var _ domsvc.ImpactNarrator = (*ImpactNarrator)(nil)

func NewImpactNarrator() *ImpactNarrator { return &ImpactNarrator{} }

// Explain picks the explanation by sentiment and signal. confidence and
// regime are part of the contract but do not change the choice.
func (n *ImpactNarrator) Explain(sentiment models.Sentiment, confidence float64, regime models.Regime, signal models.SignalLabel) string {
	_, _ = confidence, regime

	switch {
	case sentiment == models.SentimentPositive && signal == models.SignalBullish:
		return ImpactReinforcesBullish
	case sentiment == models.SentimentNegative && signal == models.SignalBearish:
		return ImpactReinforcesBearish
	case sentiment == models.SentimentPositive && (signal == models.SignalNeutral || signal == models.SignalBearish):
		return ImpactUnconfirmed
	case sentiment == models.SentimentNegative && (signal == models.SignalNeutral || signal == models.SignalBullish):
		return ImpactTechnicalStrength
	default:
		return ImpactMixed
	}
}

// Align returns Aligned when the news majority matches a directional signal,
// Mixed when both polarities are present, and Conflict otherwise. A Neutral
// signal is never Aligned.
func (n *ImpactNarrator) Align(signal models.SignalLabel, tally models.SentimentTally) models.Alignment {
	pos, neg := tally.Positive, tally.Negative
	switch {
	case signal == models.SignalBullish && pos > neg:
		return models.AlignmentAligned
	case signal == models.SignalBearish && neg > pos:
		return models.AlignmentAligned
	case pos > 0 && neg > 0:
		return models.AlignmentMixed
	default:
		return models.AlignmentConflict
	}
}
