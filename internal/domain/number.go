package domain

import (
	"fmt"
	"strings"
	"time"
)

// NumberStatus represents the lifecycle state of a pooled phone number.
type NumberStatus string

const (
	NumberStatusAvailable NumberStatus = "available"
	NumberStatusAssigned  NumberStatus = "assigned"
	NumberStatusReserved  NumberStatus = "reserved"
	NumberStatusSuspended NumberStatus = "suspended"
	NumberStatusCancelled NumberStatus = "cancelled"
)

func (s NumberStatus) String() string { return string(s) }

func (s NumberStatus) IsValid() bool {
	switch s {
	case NumberStatusAvailable, NumberStatusAssigned, NumberStatusReserved, NumberStatusSuspended, NumberStatusCancelled:
		return true
	}
	return false
}

func ParseNumberStatusFromString(s string) (NumberStatus, error) {
	st := NumberStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid number status %q", ErrValidation, s)
	}
	return st, nil
}

// PhoneNumber is a single record of the managed number pool.
type PhoneNumber struct {
	ID               string
	E164             string
	Status           NumberStatus
	AccountID        *string
	Carrier          string
	MonthlyCostCents int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Snapshot is the ordered page of numbers currently loaded into a console session.
type Snapshot []PhoneNumber

// IDs returns the snapshot identifiers in load order.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s))
	for i := range s {
		ids = append(ids, s[i].ID)
	}
	return ids
}

// Lookup returns the number with the given id.
func (s Snapshot) Lookup(id string) (PhoneNumber, bool) {
	for i := range s {
		if s[i].ID == id {
			return s[i], true
		}
	}
	return PhoneNumber{}, false
}
