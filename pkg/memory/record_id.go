package memory

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// extractID turns the driver's record id (string, decoded map or RecordID
// struct) into "table:id".
func extractID(row map[string]interface{}) string {
	raw, ok := row["id"]
	if !ok || raw == nil {
		return ""
	}

	switch v := raw.(type) {
	case string:
		return v
	case map[string]interface{}:
		return fmt.Sprintf("%v:%v", v["Table"], v["ID"])
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		table := rv.FieldByName("Table")
		id := rv.FieldByName("ID")
		if table.IsValid() && id.IsValid() {
			return fmt.Sprintf("%v:%v", table.Interface(), id.Interface())
		}
	}
	return fmt.Sprint(raw)
}

// splitID splits "table:key" and checks the table.
func splitID(id, table string) (string, error) {
	t, key, ok := strings.Cut(id, ":")
	if !ok {
		return id, nil
	}
	if t != table {
		return "", fmt.Errorf("record %s is not in table %s", id, table)
	}
	return key, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case float32:
		return int64(t)
	case int64:
		return t
	case uint64:
		return int64(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint32:
		return int64(t)
	}
	return 0
}

func unixTime(v interface{}) time.Time {
	sec := toInt64(v)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
