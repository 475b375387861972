package store

import (
	"time"

	"patlogger/internal/domain"
)

// Store defines persistence operations for users, inspections, and blobs.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	UserCount() (int64, error)
	// DeleteUser removes the user and cascades deletion of its inspections.
	DeleteUser(id string) error

	// inspections
	SaveInspection(domain.Inspection) error
	// GetInspection looks the id up case-insensitively.
	GetInspection(id string) (domain.Inspection, bool, error)
	// ListInspections returns all inspections, newest first. An empty
	// ownerID means no owner filter.
	ListInspections(ownerID string) ([]domain.Inspection, error)
	// SearchInspections runs a parameterized case-insensitive contains
	// match against the serial field.
	SearchInspections(ownerID, query string) ([]domain.Inspection, error)
	// ListOverdueInspections returns inspections whose re-inspection due
	// date is before now, newest first.
	ListOverdueInspections(ownerID string, now time.Time) ([]domain.Inspection, error)
	CountInspectionsByOwner(ownerID string) (int64, error)
	DeleteInspection(id string) error
	// TouchPDFAccess records the last certificate download time.
	TouchPDFAccess(id string, at time.Time) error

	// blobs
	SaveBlob(domain.Blob) error
	GetBlob(id string) (domain.Blob, bool, error)
	DeleteBlob(id string) error
	ListBlobs() ([]domain.Blob, error)
	// ListOrphanedBlobs returns blobs referenced by no inspection and
	// created before the cutoff.
	ListOrphanedBlobs(olderThan time.Time) ([]domain.Blob, error)
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
