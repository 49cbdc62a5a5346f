// Package codec turns protocol-native values into the text stored downstream.
//
// Booleans render as "True"/"False", nil as "None", and whole floats keep a
// trailing ".0".
package codec

import (
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gopcua/opcua/ua"
)

const (
	True  = "True"
	False = "False"
	None  = "None"

	// TimeLayout is used for DateTime values read from a node.
	TimeLayout = "2006-01-02 15:04:05"
)

// ToText returns the canonical, locale-free text form of v.
func ToText(v any) string {
	switch val := v.(type) {
	case nil:
		return None
	case *ua.Variant:
		if val == nil {
			return None
		}
		return ToText(val.Value())
	case bool:
		if val {
			return True
		}
		return False
	case string:
		return val
	case []byte:
		return hex.EncodeToString(val)
	case float32:
		return formatFloat(float64(val), 32)
	case float64:
		return formatFloat(val, 64)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case time.Time:
		return val.Local().Format(TimeLayout)
	case *ua.LocalizedText:
		if val == nil {
			return None
		}
		return val.Text
	case *ua.QualifiedName:
		if val == nil {
			return None
		}
		return val.Name
	case fmt.Stringer:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return None
		}
		return val.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = ToText(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		// REAL columns keep their decimal point: 3 is written as 3.0.
		s += ".0"
	}
	return s
}
