package model

// Label is one bottom-level class of the topic taxonomy
type Label struct {
	ID           int    `json:"id" yaml:"id"`
	Category     string `json:"category" yaml:"category"`       // Top level
	Subcategory  string `json:"subcategory" yaml:"subcategory"` // Bottom level
	IsTransverse bool   `json:"is_transverse" yaml:"is_transverse"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Name returns the display name used in topic facets
func (l Label) Name() string {
	if l.Subcategory == "" {
		return l.Category
	}
	return l.Subcategory
}

// LabelSet indexes labels by id
type LabelSet map[int]Label

// NewLabelSet builds a LabelSet from a slice
func NewLabelSet(labels []Label) LabelSet {
	set := make(LabelSet, len(labels))
	for _, l := range labels {
		set[l.ID] = l
	}
	return set
}
