// Package history turns the raw revision-update and comment feeds into
// renderable, reconciled update blocks.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/history-diff-service/internal/artifact"
	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/htmldiff"
)

// DiffMarkerClass tags inserted and deleted runs in rendered diffs; the
// panel styles and detects them by this class.
const DiffMarkerClass = "diffCls"

// hiddenFields change on every revision or duplicate information that
// other fields already carry in a friendlier form.
var hiddenFields = map[string]struct{}{
	"System.Rev":          {},
	"System.AuthorizedDate": {},
	"System.RevisedDate":  {},
	"System.ChangedDate":  {},
	"System.Watermark":    {},
	"System.AreaId":       {},
	"System.NodeName":     {},
	"System.IterationId":  {},
	"System.Id":           {},
	"System.History":      {},
	"Microsoft.VSTS.Common.StateChangeDate": {},
	"System.IsDeleted":    {},
	"System.CommentCount": {},
	"System.PersonId":     {},
	"System.AuthorizedAs": {},
	"System.ChangedBy":    {},
	"System.CreatedBy":    {},
}

// Normalizer converts one item's raw revision updates into domain updates.
type Normalizer struct {
	fields  map[string]azdo.WorkItemField
	project string
	links   *artifact.Resolver
	logger  *zap.Logger
}

func NewNormalizer(fields map[string]azdo.WorkItemField, project string, links *artifact.Resolver, logger *zap.Logger) *Normalizer {
	return &Normalizer{fields: fields, project: project, links: links, logger: logger}
}

// NormalizeRevisionUpdates converts the raw feed, iterating newest first.
// Updates with zero rows are kept: a relation-only or noise-only update may
// still merge with a coincident comment later and lend it its update id.
func (n *Normalizer) NormalizeRevisionUpdates(ctx context.Context, raw []azdo.Update) []*domain.Update {
	out := make([]*domain.Update, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		out = append(out, n.normalizeOne(ctx, raw[i]))
	}
	return out
}

func (n *Normalizer) normalizeOne(ctx context.Context, u azdo.Update) *domain.Update {
	update := &domain.Update{
		Author:    IdentityRefFrom(u.RevisedBy),
		Timestamp: n.changedDate(u),
		SourceID:  strconv.Itoa(u.ID),
	}

	for ref, change := range u.Fields {
		if n.skipField(ref) {
			continue
		}
		field, known := n.fields[ref]
		if !known {
			n.logger.Info("update contains unknown field, not showing its changes",
				zap.Int("update", u.ID), zap.String("field", ref))
			continue
		}
		diff := n.diffField(field, change)
		if diff == "" {
			continue
		}
		update.Rows = append(update.Rows, domain.UpdateRow{
			Label: friendlyFieldName(field),
			HTML:  diff,
		})
	}

	if u.Relations != nil {
		for _, rel := range u.Relations.Added {
			if label, value, ok := n.relationStrings(ctx, rel); ok {
				html := fmt.Sprintf(`<ins class="%s">%s</ins>`, DiffMarkerClass, value)
				if rel.Attributes.Comment != "" {
					// Only the latest comment text is available; edits to
					// link comments are not versioned by the platform.
					html += fmt.Sprintf(`<br><i>Newest link comment:</i> <ins class="%s">%s</ins>`,
						DiffMarkerClass, htmldiff.EscapeHTML(rel.Attributes.Comment))
				}
				update.Rows = append(update.Rows, domain.UpdateRow{Label: "Link added: " + label, HTML: html})
			}
		}
		for _, rel := range u.Relations.Removed {
			if label, value, ok := n.relationStrings(ctx, rel); ok {
				update.Rows = append(update.Rows, domain.UpdateRow{
					Label: "Link removed: " + label,
					HTML:  fmt.Sprintf(`<del class="%s">%s</del>`, DiffMarkerClass, value),
				})
			}
		}
		for _, rel := range u.Relations.Updated {
			if label, value, ok := n.relationStrings(ctx, rel); ok {
				update.Rows = append(update.Rows, domain.UpdateRow{
					Label: "Link updated: " + label,
					HTML:  fmt.Sprintf(`<ins class="%s">%s</ins>`, DiffMarkerClass, value),
				})
			}
		}
	}

	return update
}

// changedDate prefers the System.ChangedDate field value: the record's own
// revisedDate carries a year-9999 sentinel on the newest revision (and
// sometimes on intermediate ones). Relation-only updates have no
// System.ChangedDate, but their revisedDate is reliable.
func (n *Normalizer) changedDate(u azdo.Update) time.Time {
	if change, ok := u.Fields["System.ChangedDate"]; ok && change.HasNew() {
		var t time.Time
		if err := json.Unmarshal(change.NewValue, &t); err == nil {
			return t
		}
	}
	return u.RevisedDate
}

func (n *Normalizer) skipField(ref string) bool {
	if _, hidden := hiddenFields[ref]; hidden {
		return true
	}
	// AreaLevel1/2/... and IterationLevel1/2/... duplicate the area and
	// iteration path fields. WEF_ board fields flicker in and out of the
	// field metadata and duplicate fields like System.BoardColumn.
	return strings.Contains(ref, "System.AreaLevel") ||
		strings.Contains(ref, "System.IterationLevel") ||
		strings.HasPrefix(ref, "WEF_")
}

// diffField renders one field change as an HTML fragment, or "" when there
// is nothing to show.
func (n *Normalizer) diffField(field azdo.WorkItemField, change azdo.FieldChange) string {
	if !change.HasOld() && !change.HasNew() {
		return ""
	}

	kind, ok := Classify(field)
	if !ok {
		n.logger.Info("unknown field type, not showing its changes",
			zap.String("field", field.ReferenceName), zap.String("type", field.Type))
		return ""
	}

	switch kind {
	case domain.KindUnsupported:
		return unsupportedFieldMessages[field.ReferenceName]

	case domain.KindHTML:
		return DiffHTMLText(rawString(change.OldValue), rawString(change.NewValue))

	case domain.KindHistory:
		// Comment edits arrive through the dedicated comment feed; this
		// path only fires for exotic custom fields of type history.
		if !change.HasNew() {
			return ""
		}
		return fmt.Sprintf(`<ins class="%s">%s</ins>`, DiffMarkerClass, htmldiff.RemoveStyle(rawString(change.NewValue)))

	case domain.KindPlainText:
		// Escaping first forces the diff to see only text tokens. Newlines
		// become <br> so multi-line values diff line by line.
		oldText := htmldiff.NewlinesToBreaks(htmldiff.EscapeHTML(rawString(change.OldValue)))
		newText := htmldiff.NewlinesToBreaks(htmldiff.EscapeHTML(rawString(change.NewValue)))
		return htmldiff.Diff(oldText, newText, DiffMarkerClass)

	case domain.KindScalarString, domain.KindInteger, domain.KindDouble, domain.KindBoolean:
		return concatDiff(change, func(raw json.RawMessage) string {
			return htmldiff.EscapeHTML(rawString(raw))
		})

	case domain.KindDateTime:
		return concatDiff(change, func(raw json.RawMessage) string {
			var t time.Time
			if err := json.Unmarshal(raw, &t); err != nil {
				return htmldiff.EscapeHTML(rawString(raw))
			}
			return FormatDate(t)
		})

	case domain.KindIdentity:
		return concatDiff(change, func(raw json.RawMessage) string {
			return FormatIdentityHTML(identityFromRaw(raw))
		})
	}
	return ""
}

// concatDiff renders the old value as a deletion block and the new value as
// an insertion block. Presence is what matters: a field can gain or lose a
// value, and that is not a structural diff.
func concatDiff(change azdo.FieldChange, format func(json.RawMessage) string) string {
	var b strings.Builder
	if change.HasOld() {
		fmt.Fprintf(&b, `<del class="%s">%s</del>`, DiffMarkerClass, format(change.OldValue))
	}
	if change.HasNew() {
		fmt.Fprintf(&b, `<ins class="%s">%s</ins>`, DiffMarkerClass, format(change.NewValue))
	}
	return b.String()
}

// DiffHTMLText diffs two rich-text values. Style blocks are stripped first:
// they are illegal inside the panel body, and imported items (e.g. JIRA
// conversions) do carry them.
func DiffHTMLText(oldValue, newValue string) string {
	return htmldiff.Diff(htmldiff.RemoveStyle(oldValue), htmldiff.RemoveStyle(newValue), DiffMarkerClass)
}

func friendlyFieldName(field azdo.WorkItemField) string {
	// System.History represents the comments but is named "History" for
	// historic reasons.
	if field.ReferenceName == "System.History" {
		return "Comment"
	}
	return htmldiff.EscapeHTML(field.Name)
}

// rawString extracts a display string from a raw JSON value.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return fmt.Sprint(v)
	}
	return string(raw)
}

// identityFromRaw handles both representations of identity values: a full
// identity object and a bare "Display Name <address>" string.
func identityFromRaw(raw json.RawMessage) domain.IdentityRef {
	var id azdo.Identity
	if err := json.Unmarshal(raw, &id); err == nil && id.DisplayName != "" {
		return IdentityRefFrom(id)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.IdentityRef{DisplayName: s}
	}
	return domain.IdentityRef{}
}

// relationStrings renders one relation as a label and an HTML value.
func (n *Normalizer) relationStrings(ctx context.Context, rel azdo.Relation) (string, string, bool) {
	switch rel.Rel {
	case "Hyperlink":
		value := fmt.Sprintf(`<a href="%s" target="_parent">%s</a>`, rel.URL, htmldiff.EscapeHTML(rel.URL))
		return "Hyperlink", value, true

	case "ArtifactLink":
		label := htmldiff.EscapeHTML(rel.Attributes.Name)
		resolved := n.links.Resolve(ctx, n.project, rel.URL)
		if resolved == nil {
			// Unknown or broken artifact link: show the raw URI text.
			return label, htmldiff.EscapeHTML(rel.URL), true
		}
		value := htmldiff.EscapeHTML(resolved.DisplayText)
		if resolved.URL != "" {
			value = fmt.Sprintf(`<a href="%s" target="_parent">%s</a>`, resolved.URL, value)
		}
		if resolved.ExtraLabel != "" {
			value = htmldiff.EscapeHTML(resolved.ExtraLabel) + ": " + value
		}
		return label, value, true

	case "AttachedFile":
		if rel.Attributes.Name == "" {
			return "Attachment", "(Unknown file.)", true
		}
		// The fileName parameter makes the download keep its real name
		// instead of a GUID; download=true keeps media files from taking
		// over the panel frame.
		value := fmt.Sprintf(`<a href="%s?fileName=%s&download=true">%s</a>`,
			rel.URL, url.QueryEscape(rel.Attributes.Name), htmldiff.EscapeHTML(rel.Attributes.Name))
		return "Attachment", value, true
	}

	// Work item links come in many rel flavors; detect them by the REST URL
	// instead and rewrite it into the interactive edit URL.
	const workItemAPIFragment = "/_apis/wit/workItems/"
	if idx := strings.Index(rel.URL, workItemAPIFragment); idx >= 0 && strings.HasPrefix(rel.URL, "http") {
		label := htmldiff.EscapeHTML(rel.Attributes.Name)
		itemNumber := rel.URL[idx+len(workItemAPIFragment):]
		editURL := strings.Replace(rel.URL, workItemAPIFragment, "/_workitems/edit/", 1)
		value := fmt.Sprintf(`<a href="%s" target="_parent">%s</a>`,
			editURL, htmldiff.EscapeHTML("Work item #"+itemNumber))
		return label, value, true
	}

	return "(Unsupported link type)", "(Showing the change is not supported.)", true
}
