package domain

// Split divides a requested quantity into the part coverable by onHand and the
// part left on backorder. Negative inputs count as zero.
func Split(requested, onHand int) (fulfilled, backordered int) {
	if requested < 0 {
		requested = 0
	}
	if onHand < 0 {
		onHand = 0
	}
	fulfilled = min(requested, onHand)
	return fulfilled, requested - fulfilled
}
