package history

import (
	"testing"

	"github.com/spec-kit/history-diff-service/internal/azdo"
	"github.com/spec-kit/history-diff-service/internal/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		field azdo.WorkItemField
		want  domain.FieldKind
		ok    bool
	}{
		{azdo.WorkItemField{Type: "html"}, domain.KindHTML, true},
		{azdo.WorkItemField{Type: "string"}, domain.KindPlainText, true},
		{azdo.WorkItemField{Type: "plainText"}, domain.KindPlainText, true},
		{azdo.WorkItemField{Type: "treePath"}, domain.KindScalarString, true},
		{azdo.WorkItemField{Type: "guid"}, domain.KindScalarString, true},
		{azdo.WorkItemField{Type: "integer"}, domain.KindInteger, true},
		{azdo.WorkItemField{Type: "picklistInteger"}, domain.KindInteger, true},
		{azdo.WorkItemField{Type: "double"}, domain.KindDouble, true},
		{azdo.WorkItemField{Type: "picklistDouble"}, domain.KindDouble, true},
		{azdo.WorkItemField{Type: "picklistString"}, domain.KindScalarString, true},
		{azdo.WorkItemField{Type: "boolean"}, domain.KindBoolean, true},
		{azdo.WorkItemField{Type: "dateTime"}, domain.KindDateTime, true},
		{azdo.WorkItemField{Type: "history"}, domain.KindHistory, true},
		// The identity flag overrides the nominal string type.
		{azdo.WorkItemField{Type: "string", IsIdentity: true}, domain.KindIdentity, true},
		// Mislabeled test-management XML fields.
		{azdo.WorkItemField{ReferenceName: "Microsoft.VSTS.TCM.Steps", Type: "html"}, domain.KindUnsupported, true},
		{azdo.WorkItemField{ReferenceName: "Microsoft.VSTS.TCM.Parameters", Type: "html"}, domain.KindUnsupported, true},
		{azdo.WorkItemField{ReferenceName: "Microsoft.VSTS.TCM.LocalDataSource", Type: "html"}, domain.KindUnsupported, true},
		{azdo.WorkItemField{Type: "somethingNew"}, domain.FieldKind(""), false},
	}
	for _, c := range cases {
		got, ok := Classify(c.field)
		if got != c.want || ok != c.ok {
			t.Errorf("Classify(%+v) = (%q, %v), want (%q, %v)", c.field, got, ok, c.want, c.ok)
		}
	}
}
