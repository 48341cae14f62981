// Package storage provides the persistence abstraction for the console's
// durable client-side state.
package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrBucketNotFound is returned when a bucket has never been written.
	ErrBucketNotFound = errors.New("bucket not found")
)

// Repository stores sealed records addressed by bucket, record type and id.
type Repository interface {
	Put(bucket string, recordType string, recordID string, envelope *Envelope) error
	Get(bucket string, recordType string, recordID string) (*Envelope, error)
	Delete(bucket string, recordType string, recordID string) error
	List(bucket string, recordType string) ([]string, error)
}
