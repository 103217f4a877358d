package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/htmldiff"
)

// IdentityRefFrom converts a wire identity into the domain representation.
func IdentityRefFrom(id azdo.Identity) domain.IdentityRef {
	return domain.IdentityRef{
		Descriptor:  id.Descriptor,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarHref(),
	}
}

// IdentityName returns the escaped display name of an identity. Automatic
// changes on some server instances are authored by
// "Microsoft.TeamFoundation.System <uuid>"; the bracketed suffix is noise
// and gets stripped, matching what the platform's own history tab shows.
func IdentityName(id domain.IdentityRef) string {
	if strings.HasPrefix(id.DisplayName, "Microsoft.TeamFoundation.System <") {
		return "Microsoft.TeamFoundation.System"
	}
	if id.DisplayName == "" {
		return htmldiff.EscapeHTML("UNKNOWN NAME")
	}
	return htmldiff.EscapeHTML(id.DisplayName)
}

// IdentityAvatarHTML returns an inline avatar image, or "" when the
// identity has none.
func IdentityAvatarHTML(id domain.IdentityRef) string {
	if id.AvatarURL == "" {
		return ""
	}
	return fmt.Sprintf(`<img src="%s" class="inlineAvatar" alt="Avatar">`, id.AvatarURL)
}

// FormatIdentityHTML renders an identity as avatar plus display name, the
// form used inside field diffs.
func FormatIdentityHTML(id domain.IdentityRef) string {
	return strings.TrimSpace(IdentityAvatarHTML(id) + " " + IdentityName(id))
}

// FormatDate renders a timestamp for the update header and date-time field
// diffs.
func FormatDate(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 15:04:05")
}
