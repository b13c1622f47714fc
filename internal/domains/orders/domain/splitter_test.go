package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name                  string
		requested, onHand     int
		fulfilled, backorders int
	}{
		{"partial stock", 10, 6, 6, 4},
		{"enough stock", 3, 6, 3, 0},
		{"exact stock", 6, 6, 6, 0},
		{"no stock", 5, 0, 0, 5},
		{"negative on hand", 5, -2, 0, 5},
		{"negative requested", -1, 4, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, b := Split(tc.requested, tc.onHand)
			assert.Equal(t, tc.fulfilled, f)
			assert.Equal(t, tc.backorders, b)
		})
	}
}

func TestSplit_PreservesRequested(t *testing.T) {
	for requested := 0; requested <= 20; requested++ {
		for onHand := 0; onHand <= 20; onHand++ {
			f, b := Split(requested, onHand)
			assert.Equal(t, requested, f+b)
			assert.LessOrEqual(t, f, onHand)
			assert.GreaterOrEqual(t, b, 0)
		}
	}
}
