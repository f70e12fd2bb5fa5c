package domain

import "time"

// FactItem is one entry in a rotating fact pool. Used and LastUsed are
// maintained by the pool; callers treat returned items as snapshots.
type FactItem struct {
	Text     string
	Used     bool
	LastUsed time.Time
}
