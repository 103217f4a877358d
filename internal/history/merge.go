package history

import (
	"sort"

	"github.com/spec-kit/history-diff-service/internal/domain"
)

// Reconcile sorts updates newest first and merges updates made by the same
// person at the same instant. Comments are fetched separately from field
// edits, so a field change with an accompanying comment arrives as two
// records that visually belong together.
//
// Within a mergeable run the first non-comment entry becomes the merge
// target so the block keeps showing a real update id; a run consisting
// only of comments stays unmerged.
func Reconcile(updates []*domain.Update) []*domain.Update {
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Timestamp.After(updates[j].Timestamp)
	})

	baseIdx := 0
	for baseIdx < len(updates)-1 {
		// The run [baseIdx, nextDistinct) holds pairwise mergeable entries;
		// adjacency against the base is enough because the slice is sorted.
		nextDistinct := baseIdx + 1
		for nextDistinct < len(updates) && canMerge(updates[baseIdx], updates[nextDistinct]) {
			nextDistinct++
		}
		if nextDistinct == baseIdx+1 {
			baseIdx++
			continue
		}

		target := baseIdx
		for target < nextDistinct && updates[target].IsComment() {
			target++
		}
		if target >= nextDistinct {
			baseIdx++
			continue
		}

		into := updates[target]
		for i := baseIdx; i < nextDistinct; i++ {
			if i == target {
				continue
			}
			into.Rows = append(into.Rows, updates[i].Rows...)
		}

		// Drop the merged-away entries after and before the target.
		updates = append(updates[:target+1], updates[nextDistinct:]...)
		updates = append(updates[:baseIdx], updates[target:]...)

		baseIdx = target + 1
	}
	return updates
}

func canMerge(a, b *domain.Update) bool {
	return a.Author.Descriptor == b.Author.Descriptor &&
		!a.Timestamp.IsZero() && !b.Timestamp.IsZero() &&
		a.Timestamp.Equal(b.Timestamp) &&
		(a.IsComment() || b.IsComment())
}
