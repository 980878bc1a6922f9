package capability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rootField is how gojsonschema names the document root.
const rootField = "(root)"

// validate checks args against the entry's schema and returns a copy with
// defaults applied. The returned *Error names the first offending field.
func (e *entry) validate(args map[string]any) (Args, *Error) {
	if args == nil {
		args = map[string]any{}
	}

	result, err := e.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, &Error{Kind: KindInvalidArguments, Message: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}

	if !result.Valid() {
		errs := result.Errors()
		// Deterministic ordering: by field then description.
		sort.SliceStable(errs, func(i, j int) bool {
			fi, fj := fieldOf(errs[i]), fieldOf(errs[j])
			if fi != fj {
				return fi < fj
			}
			return errs[i].Description() < errs[j].Description()
		})

		details := make([]string, 0, len(errs))
		for _, desc := range errs {
			details = append(details, fmt.Sprintf("%s: %s", fieldOf(desc), desc.Description()))
		}
		return nil, &Error{
			Kind:    KindInvalidArguments,
			Field:   fieldOf(errs[0]),
			Message: "invalid arguments: " + strings.Join(details, "; "),
		}
	}

	out := make(Args, len(args)+len(e.defaults))
	for k, v := range args {
		out[k] = v
	}
	for k, v := range e.defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out, nil
}

// fieldOf extracts the offending argument name. Root-level errors (missing
// required or unknown property) carry the name in their details.
func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if field == rootField || field == "" {
		if p, ok := desc.Details()["property"].(string); ok && p != "" {
			return p
		}
		return rootField
	}
	return field
}
