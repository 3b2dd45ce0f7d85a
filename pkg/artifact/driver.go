// Package artifact stores synthesized audio payloads under generated ids for
// a fixed retention window. Drivers back the store with disk or memory; the
// Reaper sweeps expired entries on an interval independent of request traffic.
package artifact

import "time"

// Driver is the storage backend for audio artifacts.
type Driver interface {
	// Put stores data and returns its generated id. The id is only handed
	// out once the payload is fully written, so a returned id is always
	// retrievable until it expires.
	Put(data []byte) (string, error)

	// Get retrieves the payload for id, or ErrNotFound.
	Get(id string) ([]byte, error)

	// Reap removes every artifact created before cutoff and returns how
	// many were removed. A sweep keeps going past entries it cannot remove.
	Reap(cutoff time.Time) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}

// ErrNotFound is returned when an artifact id doesn't exist in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "artifact not found"
	}
	return "artifact not found: " + e.ID
}
