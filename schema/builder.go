package schema

type FieldBuilder struct {
	field Field
}

func NewField(name string) *FieldBuilder {
	return &FieldBuilder{
		field: Field{
			Name:     name,
			Type:     FieldTypeString,
			Nullable: true,
		},
	}
}

func (fb *FieldBuilder) String() *FieldBuilder {
	fb.field.Type = FieldTypeString
	return fb
}

func (fb *FieldBuilder) Number() *FieldBuilder {
	fb.field.Type = FieldTypeNumber
	return fb
}

func (fb *FieldBuilder) Int() *FieldBuilder {
	fb.field.Type = FieldTypeInt
	return fb
}

func (fb *FieldBuilder) Bool() *FieldBuilder {
	fb.field.Type = FieldTypeBool
	return fb
}

func (fb *FieldBuilder) DateTime() *FieldBuilder {
	fb.field.Type = FieldTypeDateTime
	return fb
}

func (fb *FieldBuilder) PrimaryKey() *FieldBuilder {
	fb.field.PrimaryKey = true
	fb.field.Nullable = false
	return fb
}

func (fb *FieldBuilder) Required() *FieldBuilder {
	fb.field.Nullable = false
	return fb
}

func (fb *FieldBuilder) Map(column string) *FieldBuilder {
	fb.field.Map = column
	return fb
}

func (fb *FieldBuilder) Build() Field {
	return fb.field
}
