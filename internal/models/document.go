// Package models defines the domain types for checkmark.
package models

import "time"

// Document is the store-level metadata of one Markdown file in the vault.
type Document struct {
	Path      string    `json:"path"`
	Basename  string    `json:"basename"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentMeta is the pre-parsed structure of a document held by the metadata cache.
type DocumentMeta struct {
	Path string `json:"path"`
	// Tags are the inline and frontmatter tags, each with a leading '#'.
	Tags []string `json:"tags"`
	// ListItems holds the zero-based line numbers of list item lines.
	ListItems []int `json:"list_items"`
}
