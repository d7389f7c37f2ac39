package models

// Source identifies the origin stream of an event.
type Source string

const (
	SourceChat   Source = "chat"
	SourceMarket Source = "market"
)

// Anomaly result types produced by the detectors.
const (
	AnomalyToxicitySpike = "toxicity_spike"
	AnomalyFrequencySpam = "frequency_spam"
	AnomalyZScoreOutlier = "z_score_outlier"
	AnomalyNormal        = "normal"
)

// ChatMessage is a parsed chat line from the IRC feed.
type ChatMessage struct {
	ID      string
	Author  string
	Channel string
	Text    string
}

// Trade is a parsed market trade tick.
type Trade struct {
	Symbol    string
	Price     float64
	Quantity  float64
	TradeTime int64 // source event time, ms since epoch
}

// ChatPayload is the source-specific payload of a normalized chat event.
type ChatPayload struct {
	Author  string `json:"author"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

// TradePayload is the source-specific payload of a normalized market event.
type TradePayload struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// ToxicityScores holds the six fixed classifier labels, each in [0,1].
// Error is set when the classifier degraded to the all-zero default.
type ToxicityScores struct {
	Toxic        float64 `json:"toxic"`
	SevereToxic  float64 `json:"severe_toxic"`
	Obscene      float64 `json:"obscene"`
	Threat       float64 `json:"threat"`
	Insult       float64 `json:"insult"`
	IdentityHate float64 `json:"identity_hate"`
	Error        string  `json:"error,omitempty"`
}

// ChatAnomalyDetails carries per-rule detail for chat anomalies.
type ChatAnomalyDetails struct {
	User          string  `json:"user"`
	Score         float64 `json:"score,omitempty"`
	CountInWindow int     `json:"count_in_window,omitempty"`
}

// MarketAnomalyDetails carries the window statistics behind a market verdict.
type MarketAnomalyDetails struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	ZScore float64 `json:"z_score"`
}

// AnomalyResult is the verdict attached to every normalized event.
// IsAnomaly is always encoded as a JSON boolean; an older pipeline version
// emitted the strings "true"/"false", which downstream consumers still match.
type AnomalyResult struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Type      string  `json:"type,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Severity  float64 `json:"severity"`
	Details   any     `json:"details,omitempty"`
}

// Enrichments is the named, append-only set of results attached during a
// single normalize-and-enrich pass. Anomaly is never nil on a published event.
type Enrichments struct {
	Toxicity *ToxicityScores `json:"toxicity,omitempty"`
	Anomaly  *AnomalyResult  `json:"anomaly"`
}

// NormalizedEvent is the common schema all adapters produce.
// Timestamp is ingestion time in seconds since epoch, assigned at
// normalization time, not the source's own event time.
type NormalizedEvent struct {
	Source      Source      `json:"source"`
	Kind        string      `json:"kind"`
	EventID     string      `json:"event_id"`
	Timestamp   float64     `json:"timestamp"`
	Payload     any         `json:"payload"`
	Enrichments Enrichments `json:"enrichments"`
}

// IsAnomaly reports whether the event carries a positive anomaly verdict.
func (e *NormalizedEvent) IsAnomaly() bool {
	return e.Enrichments.Anomaly != nil && e.Enrichments.Anomaly.IsAnomaly
}
