package types

import "time"

// Link is one join row between two beans. Endpoints are stored in canonical
// order (see OrderEndpoints) so a pair has a single row whichever side
// created it.
type Link struct {
	// LinkID is a UUID v7, generated on creation.
	LinkID string `json:"link_id"`

	// LinkType is LinkOne or LinkShared.
	LinkType string `json:"link_type"`

	FromType string `json:"from_type"`
	FromID   int64  `json:"from_id"`
	ToType   string `json:"to_type"`
	ToID     int64  `json:"to_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Touches reports whether the link has b as one of its endpoints.
func (l Link) Touches(beanType string, id int64) bool {
	return (l.FromType == beanType && l.FromID == id) || (l.ToType == beanType && l.ToID == id)
}

// Other returns the endpoint opposite to (beanType, id).
func (l Link) Other(beanType string, id int64) (string, int64) {
	if l.FromType == beanType && l.FromID == id {
		return l.ToType, l.ToID
	}
	return l.FromType, l.FromID
}

// OrderEndpoints returns the two endpoints sorted by (type, id).
func OrderEndpoints(a, b *Bean) (*Bean, *Bean) {
	if a.Type() < b.Type() || (a.Type() == b.Type() && a.ID() <= b.ID()) {
		return a, b
	}
	return b, a
}
