package db

import (
	"io"
	"time"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplSisal Implementation = "sisal"
	ImplBolt  Implementation = "bolt"
)

// SetCond restricts a conditional write.
type SetCond uint8

const (
	CondNone    SetCond = iota // unconditional write
	CondIfUnset                // write only if the key does not exist
	CondIfSet                  // write only if the key exists
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet            Feature = 1 << iota // Support for Set/SetE operations
	FeatureSetCond                            // Support for conditional writes
	FeatureUpdate                             // Support for atomic read-modify-write
	FeatureGet                                // Support for Get operations
	FeatureExpire                             // Support for ttl updates on existing keys
	FeatureDelete                             // Support for Delete operations
	FeatureHas                                // Support for Has operations
	FeatureSave                               // Support for Save operations
	FeatureLoad                               // Support for Load operations
	FeatureGarbageCollect                     // Support for background expiry collection
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureSetCond:
		return "SetCond"
	case FeatureUpdate:
		return "Update"
	case FeatureGet:
		return "Get"
	case FeatureExpire:
		return "Expire"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureGarbageCollect:
		return "GarbageCollect"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	Keys              int            `json:"keys"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// StringDB defines an interface for byte-string database implementations.
// It provides plain and conditional writes, an atomic read-modify-write
// primitive, and real-time expiration. Implementations can vary in their
// feature support, which can be queried with SupportsFeature.
//
// Values returned by query operations must be treated as read-only;
// whether they alias internal storage is implementation-defined.
type StringDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key and value.
	// If the key already exists, the old value and any ttl are replaced.
	Set(key string, value []byte)

	// SetE inserts or updates an entry that expires after ttl.
	// A zero ttl means no expiration.
	SetE(key string, value []byte, ttl time.Duration)

	// SetCond inserts or updates an entry subject to cond and reports
	// whether the write happened. A zero ttl means no expiration.
	SetCond(key string, value []byte, ttl time.Duration, cond SetCond) (stored bool)

	// Update atomically transforms the entry under key: fn receives the
	// current value (nil, false if the key does not exist) and returns
	// the replacement value and whether to write it. The value passed to
	// fn must not be modified; fn runs under the entry's lock and must
	// not touch the database. The previous value is returned.
	// An existing ttl is preserved across the update.
	Update(key string, fn func(old []byte, loaded bool) (next []byte, write bool)) (old []byte, loaded bool)

	// Expire replaces the ttl of an existing entry and reports whether
	// the key existed. A zero ttl removes the expiration.
	Expire(key string, ttl time.Duration) (ok bool)

	// Delete removes an entry with the specified key.
	Delete(key string)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key. The boolean return value
	// indicates whether a live (non-expired) value for the key was found.
	Get(key string) (value []byte, loaded bool)

	// Has checks whether a live entry for key exists in the database.
	Has(key string) (loaded bool)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load restores the database state data provided by an io.Reader.
	Load(r io.Reader) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}
