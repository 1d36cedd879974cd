package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// annotations do not change which instances a schema accepts.
var annotations = map[string]bool{
	"title":       true,
	"description": true,
	"$comment":    true,
	"examples":    true,
	"default":     true,
}

// unordered keywords hold sets: element order carries no meaning.
var unordered = map[string]bool{
	"required": true,
	"enum":     true,
	"oneOf":    true,
	"anyOf":    true,
	"allOf":    true,
}

// Keywords whose object value maps names to schemas rather than being a
// schema itself.
var schemaMaps = map[string]bool{
	"properties":        true,
	"patternProperties": true,
	"dependentSchemas":  true,
	"$defs":             true,
	"definitions":       true,
}

// Keywords whose value is an instance, compared literally.
var literals = map[string]bool{
	"const": true,
	"enum":  true,
}

// position describes what the value at a pointer is.
type position struct {
	keyword string // keyword owning the value, "" for schemas
	literal bool
}

// MismatchError reports where two schema documents first diverge.
type MismatchError struct {
	Pointer string
	Reason  string
}

func (e *MismatchError) Error() string {
	p := e.Pointer
	if p == "" {
		p = "/"
	}
	return fmt.Sprintf("schema mismatch at %s: %s", p, e.Reason)
}

// Equal reports whether two JSON Schema documents accept the same
// instances, comparing keyword by keyword. Annotations are ignored and set
// valued keywords are compared without regard to order. The returned error
// is a *MismatchError naming a JSON pointer into a.
func Equal(a, b []byte) error {
	var av, bv any
	if err := decode(a, &av); err != nil {
		return fmt.Errorf("decode first schema: %w", err)
	}
	if err := decode(b, &bv); err != nil {
		return fmt.Errorf("decode second schema: %w", err)
	}
	return compare("", position{}, av, bv)
}

// Check compares the generated document with the published one.
func Check() error {
	gen, err := JSON()
	if err != nil {
		return fmt.Errorf("encode generated schema: %w", err)
	}
	return Equal(gen, Published())
}

func decode(data []byte, v *any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func compare(ptr string, pos position, a, b any) error {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return &MismatchError{ptr, fmt.Sprintf("object vs %s", kind(b))}
		}
		return compareObjects(ptr, pos, av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return &MismatchError{ptr, fmt.Sprintf("array vs %s", kind(b))}
		}
		if len(av) != len(bv) {
			return &MismatchError{ptr, fmt.Sprintf("%d elements vs %d", len(av), len(bv))}
		}
		elem := position{literal: pos.literal}
		if unordered[pos.keyword] {
			return compareSets(ptr, elem, av, bv)
		}
		for i := range av {
			if err := compare(ptr+"/"+strconv.Itoa(i), elem, av[i], bv[i]); err != nil {
				return err
			}
		}
		return nil
	case json.Number:
		bv, ok := b.(json.Number)
		if !ok {
			return &MismatchError{ptr, fmt.Sprintf("number vs %s", kind(b))}
		}
		af, _ := av.Float64()
		bf, _ := bv.Float64()
		if af != bf {
			return &MismatchError{ptr, fmt.Sprintf("%s vs %s", av, bv)}
		}
		return nil
	default:
		if !reflect.DeepEqual(a, b) {
			return &MismatchError{ptr, fmt.Sprintf("%v vs %v", a, b)}
		}
		return nil
	}
}

func compareObjects(ptr string, pos position, a, b map[string]any) error {
	// Only schema objects carry annotations; names in a properties map and
	// keys of literal values are significant.
	isSchema := !pos.literal && !schemaMaps[pos.keyword]

	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		if !isSchema || !annotations[k] {
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		child := ptr + "/" + escape(k)
		av, aok := a[k]
		bv, bok := b[k]
		switch {
		case !aok:
			return &MismatchError{child, "missing from first document"}
		case !bok:
			return &MismatchError{child, "missing from second document"}
		}
		next := position{literal: pos.literal}
		if isSchema {
			next = position{keyword: k, literal: literals[k]}
		}
		if err := compare(child, next, av, bv); err != nil {
			return err
		}
	}
	return nil
}

// compareSets matches each element of a with a distinct equal element of b.
func compareSets(ptr string, elem position, a, b []any) error {
	used := make([]bool, len(b))
outer:
	for i, av := range a {
		for j, bv := range b {
			if used[j] {
				continue
			}
			if compare("", elem, av, bv) == nil {
				used[j] = true
				continue outer
			}
		}
		return &MismatchError{ptr + "/" + strconv.Itoa(i), "no matching element in second document"}
	}
	return nil
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// escape encodes a key as a JSON pointer reference token (RFC 6901).
func escape(k string) string {
	return strings.ReplaceAll(strings.ReplaceAll(k, "~", "~0"), "/", "~1")
}
