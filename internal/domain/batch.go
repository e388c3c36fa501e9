package domain

import "fmt"

// Batch identifies one of the two member cohorts that alternate day ownership.
type Batch string

const (
	BatchA Batch = "BatchA"
	BatchB Batch = "BatchB"
)

// Valid reports whether b is one of the two known batches.
func (b Batch) Valid() bool {
	return b == BatchA || b == BatchB
}

// Other returns the opposite batch.
func (b Batch) Other() Batch {
	if b == BatchA {
		return BatchB
	}
	return BatchA
}

// ParseBatch converts a wire value into a Batch.
func ParseBatch(s string) (Batch, error) {
	b := Batch(s)
	if !b.Valid() {
		return "", fmt.Errorf("%w: unknown batch %q", ErrInvalidInput, s)
	}
	return b, nil
}

// Squad is the sub-team a user belongs to inside their batch.
type Squad string

const (
	Squad1 Squad = "Squad1"
	Squad2 Squad = "Squad2"
	Squad3 Squad = "Squad3"
	Squad4 Squad = "Squad4"
	Squad5 Squad = "Squad5"
)

// Valid reports whether s is a known squad.
func (s Squad) Valid() bool {
	switch s {
	case Squad1, Squad2, Squad3, Squad4, Squad5:
		return true
	}
	return false
}
