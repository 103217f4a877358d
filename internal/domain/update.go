package domain

import "time"

// CommentSourceID is the sentinel source id used for updates that originate
// from the comment version feed instead of a numbered revision update.
const CommentSourceID = "COMMENT"

// IdentityRef identifies the author of a change.
type IdentityRef struct {
	Descriptor  string
	DisplayName string
	AvatarURL   string
}

// UpdateRow is one changed field, relation or comment action, already
// rendered as an HTML diff fragment.
type UpdateRow struct {
	Label string
	HTML  string
}

// Update is one atomic, attributable edit event. Updates are created by the
// normalizer, merged by the reconciler and trimmed by the filter; afterwards
// they are read-only until the next reload rebuilds them.
type Update struct {
	Author    IdentityRef
	Timestamp time.Time
	Rows      []UpdateRow
	SourceID  string
}

// IsComment reports whether the update came from the comment feed.
func (u *Update) IsComment() bool {
	return u.SourceID == CommentSourceID
}
