package rollout

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultIDField is the struct field (or map key) read from user values
// that are neither strings nor integers.
const DefaultIDField = "ID"

// Identifier is implemented by user types that know their own rollout id.
type Identifier interface {
	RolloutID() string
}

// IDExtractor converts an arbitrary user value into its identifier.
type IDExtractor func(user any) string

// identity resolves user values into the string used for bucketing and membership.
type identity struct {
	field     string
	extractor IDExtractor
}

// id returns "" for a nil user, including typed nil pointers.
func (r identity) id(user any) string {
	if user == nil {
		return ""
	}
	if rv := reflect.ValueOf(user); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return ""
	}
	if r.extractor != nil {
		return r.extractor(user)
	}

	switch v := user.(type) {
	case string:
		return v
	case Identifier:
		return v.RolloutID()
	}

	field := r.field
	if field == "" {
		field = DefaultIDField
	}

	rv := reflect.ValueOf(user)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Struct:
		if f := rv.FieldByName(field); f.IsValid() && f.CanInterface() {
			return r.id(f.Interface())
		}
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			if v, ok := mapField(rv, field); ok {
				return r.id(v)
			}
		}
	}

	return fmt.Sprint(user)
}

// mapField looks up field as given, then lowercased, so decoded JSON
// objects keyed by "id" resolve with the default field name.
func mapField(m reflect.Value, field string) (any, bool) {
	for _, key := range []string{field, strings.ToLower(field)} {
		v := m.MapIndex(reflect.ValueOf(key).Convert(m.Type().Key()))
		if v.IsValid() && v.CanInterface() {
			return v.Interface(), true
		}
	}
	return nil, false
}
