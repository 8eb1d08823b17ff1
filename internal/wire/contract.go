package wire

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"msgkit/internal/domain"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/request.json
var requestSchemaJSON []byte

// RequestSchema returns the JSON Schema describing request documents.
func RequestSchema() []byte {
	return requestSchemaJSON
}

// Contract checks raw documents against the request JSON Schema.
type Contract struct {
	schema *gojsonschema.Schema
}

// NewContract compiles the embedded request schema.
func NewContract() (*Contract, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(requestSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &Contract{schema: schema}, nil
}

// conditional schema branches repeat the failure of the branch they wrap
var skippedResultTypes = map[string]bool{
	"condition_then": true, "condition_else": true,
	"number_any_of": true, "number_all_of": true,
}

// Check validates doc and reports every violation as a ValidationError whose
// Path is the offending field.
func (c *Contract) Check(doc []byte) error {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errs []error
	for _, desc := range result.Errors() {
		if skippedResultTypes[desc.Type()] {
			continue
		}
		field := desc.Field()
		fields := []string(nil)
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				fields = append(fields, prop)
			}
		}
		ve := domain.NewValidationError(schemaKind(desc.Type()), "schema", desc.Description(), fields...)
		if field != "(root)" {
			ve.Path = fieldPath(strings.TrimPrefix(field, "(root)."))
		}
		errs = append(errs, ve)
	}
	if len(errs) == 0 {
		return domain.NewValidationError(domain.KindInvalidCombination, "schema", "document does not match the request schema")
	}
	return domain.Join(errs...)
}

// fieldPath turns "channelList.0.content" into "channelList[0].content".
func fieldPath(field string) string {
	var b strings.Builder
	for i, part := range strings.Split(field, ".") {
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func schemaKind(resultType string) domain.ErrorKind {
	switch resultType {
	case "required":
		return domain.KindMissingRequiredField
	case "string_gte":
		return domain.KindMissingRequiredField
	case "string_lte":
		return domain.KindLengthExceeded
	case "array_max_items":
		return domain.KindCapacityExceeded
	case "array_min_items":
		return domain.KindEmptyCollection
	case "format":
		return domain.KindInvalidTemporalValue
	}
	return domain.KindInvalidCombination
}
