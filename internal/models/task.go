package models

// Task is one checkbox line extracted from a document.
//
// Line is only valid until the next scan; write-back re-reads the document
// and re-matches the line before patching it.
type Task struct {
	Path       string   `json:"path"`
	Basename   string   `json:"basename"`
	Line       int      `json:"line"`
	Text       string   `json:"text"`
	Done       bool     `json:"done"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	Date       string   `json:"date,omitempty"`
}

// Key identifies a task within one scan.
type Key struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// Key returns the task's document path and line.
func (t Task) Key() Key {
	return Key{Path: t.Path, Line: t.Line}
}

// HasDate reports whether the task carries a date.
func (t Task) HasDate() bool {
	return t.Date != ""
}
