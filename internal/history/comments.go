package history

import (
	"sort"

	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/domain"
)

// CommentUpdates converts every version transition of every comment into a
// single-row update carrying the comment sentinel source id. Each update
// gets its own block for consistency with the revision feed; coincident
// blocks are merged later by Reconcile.
func CommentUpdates(comments []azdo.CommentWithHistory) []*domain.Update {
	var out []*domain.Update
	for _, comment := range comments {
		if len(comment.Versions) == 0 {
			continue
		}
		versions := append([]azdo.CommentVersion(nil), comment.Versions...)
		sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })

		for idx, cur := range versions {
			curText := cur.Text
			if cur.IsDeleted {
				curText = ""
			}
			prevText := ""
			prevDeleted := false
			if idx > 0 {
				prev := versions[idx-1]
				prevDeleted = prev.IsDeleted
				if !prev.IsDeleted {
					prevText = prev.Text
				}
			}

			action := "edited"
			switch {
			case idx == 0:
				action = "created"
			case cur.IsDeleted && !prevDeleted:
				action = "deleted"
			}

			out = append(out, &domain.Update{
				Author:    IdentityRefFrom(cur.ModifiedBy),
				Timestamp: cur.ModifiedDate,
				SourceID:  domain.CommentSourceID,
				Rows: []domain.UpdateRow{{
					Label: "Comment " + action,
					HTML:  DiffHTMLText(prevText, curText),
				}},
			})
		}
	}
	return out
}
