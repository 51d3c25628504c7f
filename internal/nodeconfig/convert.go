package nodeconfig

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// toCty converts a native Go value into its corresponding cty.Value.
func toCty(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	if val, ok := v.(cty.Value); ok {
		return val, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// jsonToCty converts one raw JSON value into a cty.Value with its implied type.
func jsonToCty(raw json.RawMessage) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(raw, ty)
}

// DecodeComponent populates a component config struct from the store using
// `cfg` field tags. Absent keys leave the field at its zero value; the
// component's own defaults apply there.
func (s *Store) DecodeComponent(node, component string, target any) error {
	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	structVal = structVal.Elem()
	if structVal.Kind() != reflect.Struct {
		return fmt.Errorf("decode target must point to a struct, got %T", target)
	}
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := strings.Split(field.Tag.Get("cfg"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}

		val, ok := s.Get(node, component, tag)
		if !ok {
			continue
		}
		if err := decode(val, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("config %s/%s/%s: %w", node, component, tag, err)
		}
	}
	return nil
}

// decode converts a cty.Value into the Go value behind the given pointer,
// applying implicit conversions where the types are compatible.
func decode(val cty.Value, goVal any) error {
	impliedType, err := gocty.ImpliedType(reflect.ValueOf(goVal).Elem().Interface())
	if err != nil {
		return gocty.FromCtyValue(val, goVal)
	}
	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w",
			val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	return gocty.FromCtyValue(convertedVal, goVal)
}

// ApplyLiteral stores a command-line literal. Valid JSON is stored with its
// implied type; anything else is stored as a plain string.
func (s *Store) ApplyLiteral(node, component, key, literal string) error {
	raw := []byte(literal)
	if json.Valid(raw) {
		val, err := jsonToCty(raw)
		if err != nil {
			return fmt.Errorf("config %s/%s/%s: %w", node, component, key, err)
		}
		s.SetValue(node, component, key, val)
		return nil
	}
	s.SetValue(node, component, key, cty.StringVal(literal))
	return nil
}
