package history

import (
	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/domain"
)

// Three test-management fields report their type as Html but actually carry
// XML (or, for shared parameters, JSON). Diffing them structurally is not
// possible, so they get a fixed message instead.
var unsupportedFieldMessages = map[string]string{
	"Microsoft.VSTS.TCM.Steps":           "(Showing the diff of test case steps is not supported.)",
	"Microsoft.VSTS.TCM.Parameters":      "(Showing the diff of a shared parameter set is not supported.)",
	"Microsoft.VSTS.TCM.LocalDataSource": "(Showing the diff of parameter values is not supported.)",
}

// Classify picks the rendering rule for a field. The isIdentity flag
// overrides the nominal type: identities are reported as plain strings.
// Picklist variants behave exactly like their base type, they only differ
// in how the edit UI presents them. The second return value is false for
// unrecognized types.
func Classify(field azdo.WorkItemField) (domain.FieldKind, bool) {
	if _, ok := unsupportedFieldMessages[field.ReferenceName]; ok {
		return domain.KindUnsupported, true
	}
	if field.IsIdentity {
		return domain.KindIdentity, true
	}
	switch field.Type {
	case "html":
		return domain.KindHTML, true
	case "history":
		return domain.KindHistory, true
	case "string", "plainText":
		return domain.KindPlainText, true
	case "guid", "treePath", "picklistString":
		return domain.KindScalarString, true
	case "integer", "picklistInteger":
		return domain.KindInteger, true
	case "double", "picklistDouble":
		return domain.KindDouble, true
	case "boolean":
		return domain.KindBoolean, true
	case "dateTime":
		return domain.KindDateTime, true
	case "identity":
		return domain.KindIdentity, true
	}
	return "", false
}
