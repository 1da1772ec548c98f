package models

import "time"

// NoNewsHeadline is stored when the provider returns nothing for the lookback.
const NoNewsHeadline = "No significant news in the last 7 days"

// NewsItem is a scored headline for one stock.
type NewsItem struct {
	Date       time.Time `json:"date"`
	Stock      string    `json:"stock"`
	Headline   string    `json:"headline"`
	Source     string    `json:"source"`
	URL        string    `json:"url"`
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
}

// SentimentTally counts labels over a news window.
type SentimentTally struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Tally counts sentiment labels across items.
func Tally(items []NewsItem) SentimentTally {
	var t SentimentTally
	for _, it := range items {
		switch it.Sentiment {
		case SentimentPositive:
			t.Positive++
		case SentimentNegative:
			t.Negative++
		default:
			t.Neutral++
		}
	}
	return t
}
