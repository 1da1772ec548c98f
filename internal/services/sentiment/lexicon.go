package sentiment

import (
	"math"
	"strings"
	"unicode"

	"MarketRegime/internal/domain/models"
	domsvc "MarketRegime/internal/domain/service"

	"github.com/shopspring/decimal"
)

const (
	positiveThreshold = 0.05
	negativeThreshold = -0.05

	boostIncr   = 0.293
	negateScale = -0.74
	exclaimIncr = 0.292
	maxExclaims = 4
	normAlpha   = 15.0
)

// Scorer is a lexicon and rule based polarity scorer for short headlines.
type Scorer struct {
	lexicon  map[string]float64
	boosters map[string]float64
	negators map[string]struct{}
}

var _ domsvc.SentimentScorer = (*Scorer)(nil)

// NewScorer returns a scorer with the built-in finance lexicon. Extra entries
// override or extend it.
func NewScorer(extra map[string]float64) *Scorer {
	lex := make(map[string]float64, len(financeLexicon)+len(extra))
	for k, v := range financeLexicon {
		lex[k] = v
	}
	for k, v := range extra {
		lex[strings.ToLower(k)] = v
	}
	neg := make(map[string]struct{}, len(negationWords))
	for _, w := range negationWords {
		neg[w] = struct{}{}
	}
	return &Scorer{lexicon: lex, boosters: boosterWords, negators: neg}
}

// Score labels text Positive at compound >= 0.05, Negative at <= -0.05,
// Neutral otherwise. Confidence is |compound|*100 rounded to 2 decimals.
func (s *Scorer) Score(text string) (models.Sentiment, float64) {
	compound := s.Compound(text)
	conf, _ := decimal.NewFromFloat(math.Abs(compound) * 100).Round(2).Float64()
	switch {
	case compound >= positiveThreshold:
		return models.SentimentPositive, conf
	case compound <= negativeThreshold:
		return models.SentimentNegative, conf
	default:
		return models.SentimentNeutral, conf
	}
}

// Compound returns the normalised valence of text in [-1, 1].
func (s *Scorer) Compound(text string) float64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	butAt := -1
	for i, tok := range tokens {
		if tok == "but" || tok == "however" {
			butAt = i
		}
	}

	sum := 0.0
	for i, tok := range tokens {
		v, ok := s.lexicon[tok]
		if !ok {
			continue
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if b, ok := s.boosters[prev]; ok {
				scale := 1.0 - 0.05*float64(back-1)
				if v < 0 {
					v -= b * scale
				} else {
					v += b * scale
				}
			}
			if _, ok := s.negators[prev]; ok {
				v *= negateScale
				break
			}
		}
		switch {
		case butAt >= 0 && i < butAt:
			v *= 0.5
		case butAt >= 0 && i > butAt:
			v *= 1.5
		}
		sum += v
	}

	if sum != 0 {
		ex := strings.Count(text, "!")
		if ex > maxExclaims {
			ex = maxExclaims
		}
		emph := float64(ex) * exclaimIncr
		if sum > 0 {
			sum += emph
		} else {
			sum -= emph
		}
	}

	c := sum / math.Sqrt(sum*sum+normAlpha)
	return math.Max(-1, math.Min(1, c))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':' || r == '"' || r == '(' || r == ')'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool { return unicode.IsPunct(r) && r != '\'' && r != '-' })
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

var negationWords = []string{
	"not", "no", "never", "none", "nor", "without", "neither", "nothing",
	"isn't", "aren't", "wasn't", "weren't", "doesn't", "don't", "didn't",
	"won't", "can't", "cannot", "couldn't", "shouldn't", "hasn't", "haven't",
}

var boosterWords = map[string]float64{
	"very":          boostIncr,
	"extremely":     boostIncr,
	"highly":        boostIncr,
	"hugely":        boostIncr,
	"sharply":       boostIncr,
	"significantly": boostIncr,
	"strongly":      boostIncr,
	"substantially": boostIncr,
	"record":        boostIncr,
	"most":          boostIncr,
	"slightly":      -boostIncr,
	"marginally":    -boostIncr,
	"somewhat":      -boostIncr,
	"barely":        -boostIncr,
}

// financeLexicon holds valences on the -4..4 scale.
var financeLexicon = map[string]float64{
	"gain": 2.4, "gains": 2.4, "gained": 2.2, "rise": 1.6, "rises": 1.6, "rising": 1.6, "rose": 1.5,
	"surge": 2.2, "surges": 2.2, "surged": 2.2, "soar": 2.5, "soars": 2.5, "soared": 2.5,
	"rally": 2.0, "rallies": 2.0, "rallied": 2.0, "jump": 1.5, "jumps": 1.5, "jumped": 1.5,
	"climb": 1.4, "climbs": 1.4, "climbed": 1.4, "up": 0.9, "high": 1.2, "higher": 1.4, "highest": 1.8,
	"profit": 2.2, "profits": 2.2, "profitable": 2.4, "growth": 2.1, "grow": 1.8, "grows": 1.8, "growing": 1.8,
	"beat": 1.8, "beats": 1.8, "outperform": 2.2, "outperforms": 2.2, "upgrade": 2.1, "upgraded": 2.1,
	"strong": 2.3, "stronger": 2.3, "robust": 2.2, "record-high": 2.6, "boost": 1.9, "boosts": 1.9, "boosted": 1.9,
	"win": 2.8, "wins": 2.8, "won": 2.7, "award": 2.5, "approval": 2.0, "approved": 1.9, "approves": 1.9,
	"expansion": 1.6, "expand": 1.5, "expands": 1.5, "launch": 1.1, "launches": 1.1, "deal": 1.2,
	"positive": 2.6, "optimistic": 2.3, "optimism": 2.5, "bullish": 2.4, "confident": 2.2, "confidence": 2.0,
	"success": 2.7, "successful": 2.8, "improve": 1.9, "improved": 2.1, "improves": 1.9, "recovery": 1.8, "recovers": 1.7,
	"dividend": 1.4, "buyback": 1.3, "best": 3.2, "good": 1.9, "great": 3.1, "excellent": 3.2, "benefit": 2.0, "benefits": 2.0,
	"fall": -1.6, "falls": -1.6, "fell": -1.6, "falling": -1.6, "drop": -1.5, "drops": -1.5, "dropped": -1.5,
	"decline": -1.6, "declines": -1.6, "declined": -1.6, "slump": -2.2, "slumps": -2.2, "slumped": -2.2,
	"plunge": -2.5, "plunges": -2.5, "plunged": -2.5, "crash": -2.9, "crashes": -2.9, "tumble": -2.1, "tumbles": -2.1,
	"down": -1.1, "low": -1.1, "lower": -1.2, "lowest": -1.6, "loss": -2.3, "losses": -2.4, "lose": -2.1, "loses": -2.1,
	"miss": -1.4, "misses": -1.6, "missed": -1.6, "downgrade": -2.1, "downgraded": -2.1, "weak": -1.9, "weaker": -1.9,
	"fraud": -3.2, "scam": -3.0, "probe": -1.4, "investigation": -1.3, "penalty": -2.0, "fine": -0.8, "fined": -2.0,
	"lawsuit": -1.9, "sued": -2.0, "ban": -2.1, "banned": -2.2, "default": -2.3, "debt": -1.3, "risk": -1.1, "risks": -1.1,
	"concern": -1.4, "concerns": -1.4, "worry": -1.9, "worries": -1.9, "fear": -2.2, "fears": -2.2, "uncertainty": -1.4,
	"negative": -2.7, "pessimistic": -2.3, "bearish": -2.4, "cut": -1.1, "cuts": -1.1, "layoff": -2.2, "layoffs": -2.2,
	"resign": -1.3, "resigns": -1.3, "strike": -1.5, "shortage": -1.7, "delay": -1.3, "delayed": -1.4, "slowdown": -1.8,
	"bad": -2.5, "worst": -3.1, "poor": -2.1, "fail": -2.3, "fails": -2.3, "failed": -2.3, "failure": -2.3,
	"crisis": -3.1, "collapse": -2.8, "volatile": -0.9, "selloff": -2.0, "sell-off": -2.0, "warning": -1.4, "warns": -1.4,
}
