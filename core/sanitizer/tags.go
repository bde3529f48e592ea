package sanitizer

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ErrNotStructPointer is returned by SanitizeStruct for anything but a
// pointer to a struct.
var ErrNotStructPointer = errors.New("sanitizer: must pass a pointer to struct")

var (
	registryMu sync.RWMutex
	registry   = map[string]func(string) string{
		"trim":        Trim,
		"nfc":         NormalizeUnicode,
		"single_line": SingleLine,
		"no_spaces":   RemoveExtraWhitespace,
		"no_control":  RemoveControlChars,
		"no_null":     RemoveNullBytes,

		"display_name": func(s string) string {
			return SingleLine(NormalizeUnicode(RemoveControlChars(s)))
		},
		"text": func(s string) string {
			return Trim(NormalizeUnicode(RemoveControlChars(s)))
		},
	}

	// plans caches the parsed field layout per struct type; SanitizeStruct
	// runs once per inbound message.
	plans sync.Map // reflect.Type -> []fieldPlan
)

// step is one parsed tag entry: a registry name or a "max:N" truncation.
type step struct {
	name  string
	limit int
}

type fieldPlan struct {
	index int
	steps []step
}

// RegisterSanitizer adds or replaces a named sanitizer.
func RegisterSanitizer(name string, fn func(string) string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// SanitizeStruct rewrites the string fields of the struct v points to
// according to their `sanitize` tags. Names are comma-separated and applied
// left to right; "max:N" truncates to N runes; unknown names are ignored.
// Nested structs, pointers and string slices are followed.
func SanitizeStruct(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	sanitizeValue(rv.Elem())
	return nil
}

func sanitizeValue(rv reflect.Value) {
	for _, fp := range planFor(rv.Type()) {
		field := rv.Field(fp.index)

		switch field.Kind() {
		case reflect.String:
			field.SetString(apply(field.String(), fp.steps))

		case reflect.Pointer:
			if field.IsNil() {
				continue
			}
			if elem := field.Elem(); elem.Kind() == reflect.String {
				elem.SetString(apply(elem.String(), fp.steps))
			} else if elem.Kind() == reflect.Struct {
				sanitizeValue(elem)
			}

		case reflect.Struct:
			sanitizeValue(field)

		case reflect.Slice:
			for j := range field.Len() {
				elem := field.Index(j)
				elem.SetString(apply(elem.String(), fp.steps))
			}
		}
	}
}

// planFor lists the exported fields of t that need work: tagged strings,
// tagged string pointers and slices, and any struct or struct pointer.
func planFor(t reflect.Type) []fieldPlan {
	if cached, ok := plans.Load(t); ok {
		return cached.([]fieldPlan)
	}

	var out []fieldPlan
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("sanitize")
		if !f.IsExported() || tag == "-" {
			continue
		}

		ft := f.Type
		switch {
		case ft.Kind() == reflect.Struct,
			ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct:
			out = append(out, fieldPlan{index: i})
		case tag == "":
			continue
		case ft.Kind() == reflect.String,
			ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.String,
			ft.Kind() == reflect.Slice && ft.Elem().Kind() == reflect.String:
			out = append(out, fieldPlan{index: i, steps: parseTag(tag)})
		}
	}

	actual, _ := plans.LoadOrStore(t, out)
	return actual.([]fieldPlan)
}

func parseTag(tag string) []step {
	var steps []step
	for name := range strings.SplitSeq(tag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if limit, ok := strings.CutPrefix(name, "max:"); ok {
			if n, err := strconv.Atoi(limit); err == nil && n > 0 {
				steps = append(steps, step{limit: n})
			}
			continue
		}
		steps = append(steps, step{name: name})
	}
	return steps
}

func apply(value string, steps []step) string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, st := range steps {
		if st.limit > 0 {
			value = MaxLength(value, st.limit)
			continue
		}
		if fn, ok := registry[st.name]; ok {
			value = fn(value)
		}
	}
	return value
}
