package models

// Space is a bookable resource from the catalogue.
type Space struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description,omitempty"`
	Capacity    int    `yaml:"capacity" json:"capacity,omitempty"`
	SortOrder   int64  `yaml:"sort_order" json:"sort_order"`
}
