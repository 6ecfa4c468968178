package extraction

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// MapFields evaluates each declared JSON path against the response body and
// coerces the result to its declared type. Fields whose path resolves to
// nothing are simply absent from the result; a path that resolves to a
// single-element array is unwrapped to its scalar, while multi-element and
// empty arrays stay collections.
func MapFields(body []byte, mappings []FieldMapping, logger *slog.Logger) Context {
	out := make(Context, len(mappings))

	for _, m := range mappings {
		result := gjson.GetBytes(body, m.JSONPath)
		if !result.Exists() {
			continue
		}

		dataType := ParseDataType(m.DataType)

		if result.IsArray() {
			items := result.Array()
			if len(items) == 1 {
				if v, ok := coerce(items[0], dataType); ok {
					out[m.FieldName] = v
				} else {
					logger.Warn("dropping field: value does not coerce to declared type",
						"field", m.FieldName,
						"dataType", m.DataType,
					)
				}
				continue
			}

			list := make([]any, 0, len(items))
			for _, item := range items {
				if v, ok := coerce(item, dataType); ok {
					list = append(list, v)
				}
			}
			out[m.FieldName] = list
			continue
		}

		if v, ok := coerce(result, dataType); ok {
			out[m.FieldName] = v
		} else {
			logger.Warn("dropping field: value does not coerce to declared type",
				"field", m.FieldName,
				"dataType", m.DataType,
			)
		}
	}

	return out
}

// coerce converts one gjson value to the declared type.
func coerce(result gjson.Result, dataType DataType) (any, bool) {
	switch dataType {
	case TypeInteger:
		switch result.Type {
		case gjson.Number:
			return result.Int(), true
		case gjson.String:
			n, err := strconv.ParseInt(strings.TrimSpace(result.String()), 10, 64)
			if err != nil {
				return nil, false
			}
			return n, true
		default:
			return nil, false
		}
	case TypeDecimal:
		switch result.Type {
		case gjson.Number:
			return result.Float(), true
		case gjson.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(result.String()), 64)
			if err != nil {
				return nil, false
			}
			return f, true
		default:
			return nil, false
		}
	case TypeBoolean:
		switch result.Type {
		case gjson.True:
			return true, true
		case gjson.False:
			return false, true
		case gjson.String:
			b, err := strconv.ParseBool(strings.TrimSpace(result.String()))
			if err != nil {
				return nil, false
			}
			return b, true
		default:
			return nil, false
		}
	case TypeDate:
		// Dates pass through as strings; the validity filter owns parsing.
		return result.String(), true
	default:
		return result.String(), true
	}
}
