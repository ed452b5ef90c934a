// pkg/converter/inference.go
package converter

import "time"

// kind is a position in the widening order used by type inference
type kind int

const (
	kindNull kind = iota
	kindBool
	kindInt
	kindFloat
	kindTime
	kindJSON
	kindText
)

// pgTypes maps each inferred kind to its column type.
// An all-null column is stored as TEXT.
var pgTypes = map[kind]string{
	kindNull:  TypeText,
	kindBool:  TypeBoolean,
	kindInt:   TypeBigint,
	kindFloat: TypeDouble,
	kindTime:  TypeTimestamp,
	kindJSON:  TypeJSONB,
	kindText:  TypeText,
}

// inferType returns the narrowest column type able to hold every value
func inferType(values []interface{}) string {
	k := kindNull
	for _, v := range values {
		k = widen(k, kindOf(v))
		if k == kindText {
			break
		}
	}
	return pgTypes[k]
}

func kindOf(v interface{}) kind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case int64:
		return kindInt
	case float64:
		return kindFloat
	case time.Time:
		return kindTime
	case map[string]interface{}, []interface{}:
		return kindJSON
	default:
		return kindText
	}
}

// widen combines two kinds. Integers and floats meet at float;
// any other mix falls back to text.
func widen(a, b kind) kind {
	switch {
	case a == b:
		return a
	case a == kindNull:
		return b
	case b == kindNull:
		return a
	case (a == kindInt && b == kindFloat) || (a == kindFloat && b == kindInt):
		return kindFloat
	default:
		return kindText
	}
}
