package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// JSONObject is an opaque JSON object persisted as TEXT.
type JSONObject map[string]any

func (o JSONObject) Value() (driver.Value, error) {
	if len(o) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]any(o))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (o *JSONObject) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JSONObject", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*o = nil
		return nil
	}

	return json.Unmarshal(data, (*map[string]any)(o))
}

// StringValue renders a decoded JSON scalar as a string. Nil, empty strings
// and non-scalar values report false.
func StringValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return "", false
	case fmt.Stringer:
		s := t.String()
		return s, s != ""
	default:
		return "", false
	}
}
