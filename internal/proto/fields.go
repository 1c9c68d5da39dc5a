package proto

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// NewMessage builds a Struct from plain Go values. []byte values are
// base64 encoded; []map[string]any values become lists of structs.
func NewMessage(fields map[string]any) (*structpb.Struct, error) {
	conv := make(map[string]any, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case []byte:
			conv[k] = base64.StdEncoding.EncodeToString(x)
		case []map[string]any:
			list := make([]any, len(x))
			for i, m := range x {
				list[i] = m
			}
			conv[k] = list
		default:
			conv[k] = v
		}
	}
	return structpb.NewStruct(conv)
}

func String(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func Bytes(s *structpb.Struct, key string) ([]byte, error) {
	raw := String(s, key)
	if raw == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", key, err)
	}
	return b, nil
}

// Object returns a nested struct field as a map. A missing field yields nil.
func Object(s *structpb.Struct, key string) map[string]any {
	if s == nil {
		return nil
	}
	v := s.GetFields()[key].GetStructValue()
	if v == nil {
		return nil
	}
	return v.AsMap()
}

// Objects returns a list-of-structs field. Non-object elements are skipped.
func Objects(s *structpb.Struct, key string) []map[string]any {
	if s == nil {
		return nil
	}
	values := s.GetFields()[key].GetListValue().GetValues()
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		if st := v.GetStructValue(); st != nil {
			out = append(out, st.AsMap())
		}
	}
	return out
}
