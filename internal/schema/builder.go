package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Builder accumulates field values for one message instance. Values are
// checked against the proto's declared field types as they are set.
type Builder struct {
	proto  *Proto
	fields map[string]cty.Value
}

// Builder returns a fresh builder for the named proto.
func (r *Registry) Builder(protoName string) (*Builder, error) {
	proto, ok := r.Proto(protoName)
	if !ok {
		return nil, fmt.Errorf("unknown message proto %q", protoName)
	}
	return &Builder{proto: proto, fields: make(map[string]cty.Value)}, nil
}

// Proto returns the proto this builder constructs.
func (b *Builder) Proto() *Proto {
	return b.proto
}

// Set assigns a field value, converting the Go value to the field's declared
// type. Unknown fields and incompatible values are errors.
func (b *Builder) Set(field string, v any) error {
	decl, ok := b.proto.Field(field)
	if !ok {
		return fmt.Errorf("proto %q has no field %q", b.proto.Name, field)
	}

	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return fmt.Errorf("proto %q field %q: %w", b.proto.Name, field, err)
	}
	val, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return fmt.Errorf("proto %q field %q: %w", b.proto.Name, field, err)
	}
	checked, err := convert.Convert(val, ctyTypes[decl.Type])
	if err != nil {
		return fmt.Errorf("proto %q field %q: value does not fit declared type %q: %w",
			b.proto.Name, field, decl.Type, err)
	}

	b.fields[field] = checked
	return nil
}

// Build seals the builder into an immutable message. Unset fields stay
// absent; the runtime fills its own defaults.
func (b *Builder) Build() (*Message, error) {
	fields := make(map[string]cty.Value, len(b.fields))
	for name, val := range b.fields {
		fields[name] = val
	}
	return &Message{
		Proto:   b.proto.Name,
		UUID:    uuid.NewString(),
		Acqtime: time.Now().UnixNano(),
		fields:  fields,
	}, nil
}

// Message is one constructed message instance.
type Message struct {
	Proto   string
	UUID    string
	Acqtime int64

	fields map[string]cty.Value
}

// Field returns the value of a set field.
func (m *Message) Field(name string) (cty.Value, bool) {
	val, ok := m.fields[name]
	return val, ok
}

// MarshalJSON exports the message for transports that speak JSON, like the
// sim bridge.
func (m *Message) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.fields))
	for name, val := range m.fields {
		raw, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return nil, fmt.Errorf("message %q field %q: %w", m.Proto, name, err)
		}
		fields[name] = raw
	}
	return json.Marshal(struct {
		Proto   string                     `json:"proto"`
		UUID    string                     `json:"uuid"`
		Acqtime int64                      `json:"acqtime"`
		Fields  map[string]json.RawMessage `json:"fields"`
	}{m.Proto, m.UUID, m.Acqtime, fields})
}
