package types

// PriceUpdate is a raw order-book snapshot for one prediction market.
type PriceUpdate struct {
	Market    string  `json:"market"`
	Price     float64 `json:"price"`
	BestBid   float64 `json:"best_bid"`
	BestAsk   float64 `json:"best_ask"`
	Spread    float64 `json:"spread"`
	Volume24h float64 `json:"volume_24h"`
}

// NewsArticle is a raw scored headline from the news boundary.
type NewsArticle struct {
	Headline  string  `json:"headline"`
	URL       string  `json:"url,omitempty"`
	Sentiment float64 `json:"sentiment"`
}

// SocialPost is a raw scored social media item.
type SocialPost struct {
	Author    string  `json:"author,omitempty"`
	Text      string  `json:"text"`
	Sentiment float64 `json:"sentiment"`
}

// WhaleMovement is a large on-chain transfer observation.
type WhaleMovement struct {
	Market string  `json:"market,omitempty"`
	Amount float64 `json:"amount"`
	Side   string  `json:"side"`
}
