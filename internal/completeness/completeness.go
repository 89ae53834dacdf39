// Package completeness decides which recordings of a match captured the whole
// session.
package completeness

import "time"

// DefaultRatio is the fraction of the canonical duration a recording must
// reach to count as complete.
const DefaultRatio = 0.95

// Member is one file of a match as seen by the classifier.
type Member struct {
	FileID   int64
	Duration time.Duration
}

// Verdict is the classification of a match's files.
type Verdict struct {
	Canonical  time.Duration
	Incomplete map[int64]bool
}

// Classify computes the canonical duration (the longest member) and flags
// each member whose duration is below ratio × canonical. A ratio outside
// (0, 1] falls back to DefaultRatio.
func Classify(members []Member, ratio float64) Verdict {
	if ratio <= 0 || ratio > 1 {
		ratio = DefaultRatio
	}
	verdict := Verdict{Incomplete: make(map[int64]bool, len(members))}
	for _, m := range members {
		if m.Duration > verdict.Canonical {
			verdict.Canonical = m.Duration
		}
	}
	threshold := float64(verdict.Canonical) * ratio
	for _, m := range members {
		verdict.Incomplete[m.FileID] = float64(m.Duration) < threshold
	}
	return verdict
}

// Changed lists the members whose stored flag differs from the verdict.
func (v Verdict) Changed(current map[int64]bool) []int64 {
	var ids []int64
	for id, flag := range v.Incomplete {
		if current[id] != flag {
			ids = append(ids, id)
		}
	}
	return ids
}
