package model

// SentencePrediction is one label predicted for one sentence, [Start, End)
type SentencePrediction struct {
	Start         int      `json:"start"`
	End           int      `json:"end"`
	LabelID       int      `json:"label_id"`
	DecisionScore *float64 `json:"decision_score"` // nil when the model has no score for the label
	Sentence      string   `json:"sentence,omitempty"`
}

// DemandPrediction is a demand span enriched with the labels of the sentences it contains
type DemandPrediction struct {
	Demand      DemandSpan           `json:"demand"`
	LabelIDs    []int                `json:"label_ids"`
	Predictions []SentencePrediction `json:"-"`
}

// DemandTopics holds the topic facets of one demand, consumed by indexing
type DemandTopics struct {
	Demand              DemandSpan `json:"demand"`
	Type                string     `json:"demand_type"`
	Content             string     `json:"content,omitempty"`
	Topics              []string   `json:"topics"`
	ComplementaryTopics []string   `json:"complementary_topics"`
	LowConfidenceTopics []string   `json:"low_confidence_topics"`
}
