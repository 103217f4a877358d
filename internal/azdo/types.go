package azdo

import (
	"encoding/json"
	"time"
)

// Identity is a user reference as reported by the platform. ImageURL is the
// deprecated avatar field; _links.avatar is preferred when present.
type Identity struct {
	DisplayName string        `json:"displayName"`
	Descriptor  string        `json:"descriptor"`
	ImageURL    string        `json:"imageUrl"`
	Links       IdentityLinks `json:"_links"`
}

type IdentityLinks struct {
	Avatar Link `json:"avatar"`
}

type Link struct {
	Href string `json:"href"`
}

// AvatarHref returns the best available avatar URL, or "".
func (id Identity) AvatarHref() string {
	if id.Links.Avatar.Href != "" {
		return id.Links.Avatar.Href
	}
	return id.ImageURL
}

// FieldChange carries the old and new value of one field in one update.
// Values are kept raw: their JSON type depends on the field type, and the
// distinction between an absent key and an empty value matters for
// rendering.
type FieldChange struct {
	OldValue json.RawMessage `json:"oldValue"`
	NewValue json.RawMessage `json:"newValue"`
}

func (c FieldChange) HasOld() bool { return len(c.OldValue) > 0 }
func (c FieldChange) HasNew() bool { return len(c.NewValue) > 0 }

type RelationAttributes struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// Relation is one link attached to or removed from a work item.
type Relation struct {
	Rel        string             `json:"rel"`
	URL        string             `json:"url"`
	Attributes RelationAttributes `json:"attributes"`
}

type RelationChanges struct {
	Added   []Relation `json:"added"`
	Removed []Relation `json:"removed"`
	Updated []Relation `json:"updated"`
}

// Update is one element of the work item updates feed. Rev increments only
// on field changes; ID also increments on relation changes.
type Update struct {
	ID          int                    `json:"id"`
	Rev         int                    `json:"rev"`
	RevisedBy   Identity               `json:"revisedBy"`
	RevisedDate time.Time              `json:"revisedDate"`
	Fields      map[string]FieldChange `json:"fields"`
	Relations   *RelationChanges       `json:"relations"`
}

// CommentVersion is one revision of a comment.
type CommentVersion struct {
	Version      int       `json:"version"`
	Text         string    `json:"text"`
	IsDeleted    bool      `json:"isDeleted"`
	ModifiedBy   Identity  `json:"modifiedBy"`
	ModifiedDate time.Time `json:"modifiedDate"`
}

// Comment is one element of the comments feed; its own fields reflect the
// latest version.
type Comment struct {
	ID int `json:"id"`
	CommentVersion
}

type commentList struct {
	Count             int       `json:"count"`
	Comments          []Comment `json:"comments"`
	ContinuationToken string    `json:"continuationToken"`
}

// CommentWithHistory is a comment together with all of its versions,
// unordered as delivered.
type CommentWithHistory struct {
	Comment
	Versions []CommentVersion
}

// WorkItemField is the platform's metadata record for one field.
type WorkItemField struct {
	ReferenceName string `json:"referenceName"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsIdentity    bool   `json:"isIdentity"`
	IsPicklist    bool   `json:"isPicklist"`
}

// Project identifies a team project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type valueList[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}
