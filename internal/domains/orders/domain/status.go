package domain

import "fmt"

// Status enumerates order progression.
type Status string

const (
	StatusPlaced    Status = "PEDIDO"
	StatusDelivered Status = "ENTREGADO"
	StatusSettled   Status = "LIQUIDADO"
	StatusCancelled Status = "CANCELADO"
)

var validNext = map[Status][]Status{
	StatusPlaced:    {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusSettled},
}

// CanTransition reports whether the transition table allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range validNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves the status.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPlaced, StatusDelivered, StatusSettled, StatusCancelled:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}
