package domain

import "errors"

// ClientKind distinguishes enrolled students from walk-in buyers.
type ClientKind string

const (
	ClientStudent ClientKind = "student"
	ClientWalkIn  ClientKind = "walk_in"
)

var ErrInvalidClientKind = errors.New("client kind must be student or walk_in")

// Valid reports whether the kind is one of the known client kinds.
func (k ClientKind) Valid() bool {
	switch k {
	case ClientStudent, ClientWalkIn:
		return true
	default:
		return false
	}
}

// Garment is the read model of a catalog garment.
type Garment struct {
	ID       int64
	Name     string
	Category string
	Active   bool
}

// Size is the read model of a catalog size.
type Size struct {
	ID    int64
	Label string
}

// Client is a directory entry for someone who can place orders.
type Client struct {
	Kind ClientKind
	ID   int64
	Name string
	// Reference holds the enrolment number for students or a contact for walk-ins.
	Reference string
}
