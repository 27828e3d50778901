package model

import "time"

// Event represents one recorded school event. Events are created by the
// external booking collaborator; this service only flips the derived
// AllTracksApproved flag.
type Event struct {
	ID   int64     `json:"id" gorm:"primaryKey"`
	Date time.Time `json:"date" gorm:"index"`
	// AllTracksApproved is derived: AND over approval of all non-rejected
	// asset-bearing tracks. Recomputed from a fresh read on every approval
	// change, never incremented.
	AllTracksApproved bool      `json:"allTracksApproved"`
	SchoolsongRef     string    `json:"schoolsongRef,omitempty" gorm:"size:64"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Class is one class (or cross-class group) within an event.
type Class struct {
	ID      int64  `json:"id" gorm:"primaryKey"`
	EventID int64  `json:"eventId" gorm:"index"`
	Name    string `json:"name" gorm:"size:128"`
	// ExpectedSongs is the number of songs booked for this class. Compared
	// against uploaded tracks for display; never folded into the approval
	// aggregate.
	ExpectedSongs int       `json:"expectedSongs"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
