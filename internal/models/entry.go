// Package models defines the domain types for Dagaz.
package models

import "time"

// EntryType classifies a journal entry per the bullet-journal method.
type EntryType string

const (
	TypeTask        EntryType = "task"
	TypeEvent       EntryType = "event"
	TypeNote        EntryType = "note"
	TypeInspiration EntryType = "inspiration"
	TypeResearch    EntryType = "research"
	TypeMemory      EntryType = "memory"
)

// EntryStatus is the task lifecycle state. Non-task entries stay incomplete.
type EntryStatus string

const (
	StatusIncomplete EntryStatus = "incomplete"
	StatusComplete   EntryStatus = "complete"
	StatusMigrated   EntryStatus = "migrated"
	StatusScheduled  EntryStatus = "scheduled"
	StatusCancelled  EntryStatus = "cancelled"
)

// Priority is the signifier-derived urgency level of an entry.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// CollectionDaily is the logical grouping all scanned entries land in.
const CollectionDaily = "daily"

// Entry is the canonical structured journal entry produced by the parser
// (or directly by an OCR provider that understands bullet journals).
type Entry struct {
	ID             string      `json:"id"`
	Type           EntryType   `json:"type"`
	Status         EntryStatus `json:"status"`
	Content        string      `json:"content"`
	Priority       Priority    `json:"priority"`
	Contexts       []string    `json:"contexts,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	Collection     string      `json:"collection"`
	CollectionDate string      `json:"collection_date"`
	DueDate        *time.Time  `json:"due_date,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	OCRConfidence  float64     `json:"ocr_confidence"`
	Mood           string      `json:"mood,omitempty"`
}

// ValidType reports whether t is one of the known entry types.
func ValidType(t EntryType) bool {
	switch t {
	case TypeTask, TypeEvent, TypeNote, TypeInspiration, TypeResearch, TypeMemory:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known entry statuses.
func ValidStatus(s EntryStatus) bool {
	switch s {
	case StatusIncomplete, StatusComplete, StatusMigrated, StatusScheduled, StatusCancelled:
		return true
	}
	return false
}
