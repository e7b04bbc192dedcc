package domain

import (
	"strings"
	"time"
)

// SyncStatus is the state of the most recent synchronization of a location.
type SyncStatus string

const (
	SyncStatusNeverSynced SyncStatus = "NEVER_SYNCED"
	SyncStatusInProgress  SyncStatus = "IN_PROGRESS"
	SyncStatusSuccess     SyncStatus = "SUCCESS"
	SyncStatusFailed      SyncStatus = "FAILED"
)

// TrackedLocation is a city the user follows.
// Sync status and LastSyncAt are owned by the sync engine; Name and Favorite by the user.
type TrackedLocation struct {
	ID          string      `json:"id" bson:"_id"`
	Name        string      `json:"name" bson:"name"`
	Country     string      `json:"country" bson:"country"`
	CountryCode string      `json:"countryCode,omitempty" bson:"country_code,omitempty"`
	Admin1      string      `json:"admin1,omitempty" bson:"admin1,omitempty"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
	Favorite    bool        `json:"favorite" bson:"favorite"`

	// LastSyncAt is set only by a successful sync
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty" bson:"last_sync_at,omitempty"`
	SyncStatus SyncStatus `json:"syncStatus" bson:"sync_status"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// MarkInProgress moves the location into IN_PROGRESS.
func (l *TrackedLocation) MarkInProgress(now time.Time) {
	l.SyncStatus = SyncStatusInProgress
	l.UpdatedAt = now
}

// MarkSuccess records a successful sync at the given instant.
func (l *TrackedLocation) MarkSuccess(at time.Time) {
	syncedAt := at
	l.LastSyncAt = &syncedAt
	l.SyncStatus = SyncStatusSuccess
	l.UpdatedAt = at
}

// MarkFailed records a failed sync. LastSyncAt keeps the previous successful instant.
func (l *TrackedLocation) MarkFailed(now time.Time) {
	l.SyncStatus = SyncStatusFailed
	l.UpdatedAt = now
}

// IsStale reports whether the location needs a refresh.
// A location that never synced successfully is always stale.
func (l *TrackedLocation) IsStale(now time.Time, staleAfter time.Duration) bool {
	if l.LastSyncAt == nil {
		return true
	}

	return now.Sub(*l.LastSyncAt) >= staleAfter
}

// SameCity reports whether two locations name the same city, ignoring case and surrounding space.
func (l *TrackedLocation) SameCity(name, country string) bool {
	return strings.EqualFold(strings.TrimSpace(l.Name), strings.TrimSpace(name)) &&
		strings.EqualFold(strings.TrimSpace(l.Country), strings.TrimSpace(country))
}

// SyncResult is the outcome of synchronizing one location.
// A failed sync is reported here rather than as an error.
type SyncResult struct {
	LocationID          string    `json:"locationId"`
	LocationName        string    `json:"locationName"`
	Success             bool      `json:"success"`
	Message             string    `json:"message"`
	SyncedAt            time.Time `json:"syncedAt"`
	SnapshotID          string    `json:"snapshotId,omitempty"`
	ConflictDetected    bool      `json:"conflictDetected"`
	ConflictDescription string    `json:"conflictDescription,omitempty"`
	ErrorKind           ErrorKind `json:"errorKind,omitempty"`
	ErrorCode           string    `json:"errorCode,omitempty"`
}
