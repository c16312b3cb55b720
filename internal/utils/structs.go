package utils

import (
	"fmt"
	"reflect"
	"slices"
)

var ColumnTag = "db"

// StructTagValues lists the column names of a db-tagged struct in field order.
func StructTagValues(input any) []string {
	targetType := structType(input)

	result := make([]string, 0, targetType.NumField())
	for i := range targetType.NumField() {
		if tag, ok := columnTag(targetType.Field(i)); ok {
			result = append(result, tag)
		}
	}

	return result
}

// StructToMap maps column name to field value, leaving out any column in omit.
func StructToMap(input any, omit ...string) map[string]any {
	itemValue := reflect.ValueOf(input)
	if itemValue.Kind() == reflect.Ptr {
		itemValue = itemValue.Elem()
	}
	itemType := structType(input)

	result := make(map[string]any, itemType.NumField())
	for i := range itemType.NumField() {
		tag, ok := columnTag(itemType.Field(i))
		if !ok || slices.Contains(omit, tag) {
			continue
		}
		result[tag] = itemValue.Field(i).Interface()
	}

	return result
}

// PrefixColumns qualifies columns with a table alias: "u", ["id"] -> ["u.id"].
func PrefixColumns(prefix string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = fmt.Sprintf("%s.%s", prefix, c)
	}
	return out
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func structType(input any) reflect.Type {
	t := reflect.TypeOf(input)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}
	return t
}

func columnTag(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}
	tag := field.Tag.Get(ColumnTag)
	if tag == "" || tag == "-" {
		return "", false
	}
	return tag, true
}
