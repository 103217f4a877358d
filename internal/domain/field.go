package domain

// FieldKind selects the rendering rule for a changed field.
type FieldKind string

const (
	KindHTML         FieldKind = "HTML"
	KindPlainText    FieldKind = "PLAIN_TEXT"
	KindScalarString FieldKind = "SCALAR_STRING"
	KindInteger      FieldKind = "INTEGER"
	KindDouble       FieldKind = "DOUBLE"
	KindBoolean      FieldKind = "BOOLEAN"
	KindDateTime     FieldKind = "DATE_TIME"
	KindIdentity     FieldKind = "IDENTITY"
	KindHistory      FieldKind = "HISTORY"
	KindUnsupported  FieldKind = "UNSUPPORTED"
)

// FieldMetadata describes one work item field as reported by the platform.
type FieldMetadata struct {
	ReferenceName string
	DisplayName   string
	Type          string
	IsIdentity    bool
	IsPicklist    bool
}
