package cel

import (
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// RowHelpersLibrary creates a CEL library with helper functions for
// expressions over data platform rows, where column values may arrive as
// strings, numbers or booleans.
//
// Provides:
//   - fieldEquals(row, field, value) - case-insensitive comparison of a column's text to value
//   - hasField(row, field) - checks if the row has a non-null column
//   - safeToString(val) - converts value to string safely (returns empty string if nil)
func RowHelpersLibrary() cel.EnvOption {
	return cel.Lib(&rowHelpersLib{})
}

type rowHelpersLib struct{}

func (lib *rowHelpersLib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("fieldEquals",
			cel.Overload("fieldEquals_map_string_dyn",
				[]*cel.Type{cel.DynType, cel.StringType, cel.DynType},
				cel.BoolType,
				cel.FunctionBinding(lib.fieldEquals),
			),
		),

		cel.Function("hasField",
			cel.Overload("hasField_map_string",
				[]*cel.Type{cel.DynType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(lib.hasField),
			),
		),

		cel.Function("safeToString",
			cel.Overload("safeToString_any",
				[]*cel.Type{cel.DynType},
				cel.StringType,
				cel.UnaryBinding(lib.safeToString),
			),
		),
	}
}

func (lib *rowHelpersLib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

// fieldEquals compares the text form of row[field] with the text form of
// value, ignoring case. A missing or null column never matches.
func (lib *rowHelpersLib) fieldEquals(args ...ref.Val) ref.Val {
	if len(args) != 3 {
		return types.Bool(false)
	}
	row, ok := args[0].Value().(map[string]any)
	if !ok {
		return types.Bool(false)
	}
	field, ok := args[1].Value().(string)
	if !ok {
		return types.Bool(false)
	}

	got, ok := ScalarText(row[field])
	if !ok {
		return types.Bool(false)
	}
	want, ok := ScalarText(args[2].Value())
	if !ok {
		return types.Bool(false)
	}
	return types.Bool(strings.EqualFold(got, want))
}

// hasField checks if the row has a non-null column named field
func (lib *rowHelpersLib) hasField(rowVal, fieldVal ref.Val) ref.Val {
	row, ok := rowVal.Value().(map[string]any)
	if !ok {
		return types.Bool(false)
	}
	field, ok := fieldVal.Value().(string)
	if !ok {
		return types.Bool(false)
	}
	v, present := row[field]
	return types.Bool(present && v != nil)
}

// safeToString converts a value to string safely
func (lib *rowHelpersLib) safeToString(val ref.Val) ref.Val {
	if val.Type() == types.NullType {
		return types.String("")
	}

	nativeVal := val.Value()
	if nativeVal == nil {
		return types.String("")
	}

	if s, ok := ScalarText(nativeVal); ok {
		return types.String(s)
	}
	result := types.DefaultTypeAdapter.NativeToValue(nativeVal).ConvertToType(types.StringType)
	if types.IsError(result) {
		return types.String("")
	}
	return result
}

// ScalarText renders a decoded JSON or CEL scalar as text. Whole numbers
// render without a fraction, so 1 and "1" compare equal.
func ScalarText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	default:
		return "", false
	}
}
