package model

import "time"

// PageSource identifies one page of an input PDF.
// Page is 1-based, as numbered by the source file.
type PageSource struct {
	Document string `json:"document" yaml:"document"`
	Page     int    `json:"page" yaml:"page"`
}

type PageView struct {
	Source PageSource `json:"source" yaml:"source"`
	// Position is 1-based within the owning document; 0 for pages in Unassigned.
	Position int `json:"position,omitempty" yaml:"position,omitempty"`
}

type DocumentView struct {
	Name string `json:"name" yaml:"name"`
	// Index is the 1-based display/generation order. Unassigned is always 0.
	Index      int        `json:"index" yaml:"index"`
	Unassigned bool       `json:"unassigned,omitempty" yaml:"unassigned,omitempty"`
	Pages      []PageView `json:"pages" yaml:"pages"`
}

// Snapshot is a read-only copy of the whole output model for presentation.
type Snapshot struct {
	OutputDir  string         `json:"outputDir" yaml:"outputDir"`
	Unassigned DocumentView   `json:"unassigned" yaml:"unassigned"`
	Documents  []DocumentView `json:"documents" yaml:"documents"`
}

// PageSelected is emitted when a page node is activated.
type PageSelected struct {
	Document string `json:"document" yaml:"document"`
	Page     int    `json:"page" yaml:"page"`
}

type Event struct {
	ID       string    `json:"id" yaml:"id"`
	TS       time.Time `json:"ts" yaml:"ts"`
	Type     string    `json:"type" yaml:"type"`
	EntityID string    `json:"entityId" yaml:"entityId"`
	Payload  any       `json:"payload" yaml:"payload"`
}
