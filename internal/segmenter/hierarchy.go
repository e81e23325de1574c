package segmenter

import "github.com/dgallion1/mdsplit/internal/section"

// hierarchy holds the most recent header text per level for one Split call.
type hierarchy [section.MaxLevel]string

// enter records a header at level and returns the ancestors it sits under.
// Entries at level and deeper are closed first.
func (h *hierarchy) enter(level int, header string) section.Parents {
	var parents section.Parents
	for i := 0; i < level-1; i++ {
		parents[i] = h[i]
	}
	for i := level - 1; i < len(h); i++ {
		h[i] = ""
	}
	h[level-1] = header
	return parents
}
