package models

// Regime is the coarse trend classification of a trading day.
type Regime string

const (
	RegimeBullish  Regime = "Bullish"
	RegimeBearish  Regime = "Bearish"
	RegimeSideways Regime = "Sideways"
)

// SignalLabel is the directional call derived from regime and price position.
type SignalLabel string

const (
	SignalBullish SignalLabel = "Bullish"
	SignalBearish SignalLabel = "Bearish"
	SignalNeutral SignalLabel = "Neutral"
)

type Strength string

const (
	StrengthStrong Strength = "Strong"
	StrengthWeak   Strength = "Weak"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Sentiment is the polarity label of a headline.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Alignment is the agreement verdict between the technical signal and news flow.
type Alignment string

const (
	AlignmentAligned  Alignment = "Aligned"
	AlignmentMixed    Alignment = "Mixed"
	AlignmentConflict Alignment = "Conflict"
)

func (r Regime) String() string      { return string(r) }
func (s SignalLabel) String() string { return string(s) }
func (s Sentiment) String() string   { return string(s) }
func (a Alignment) String() string   { return string(a) }
