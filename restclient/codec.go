/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Codec encodes request bodies and decodes response bodies.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, out interface{}) error
}

// JSONCodec is the default Codec.
//
// On encoding, []byte and json.RawMessage are sent as is, other values are marshaled to JSON
// and, unless KeepNulls is set, null object members are dropped.
//
// On decoding, *[]byte and *string targets receive the raw body, an empty body leaves the zero value,
// unknown fields are ignored. If the body doesn't fit the target type exactly, it's decoded leniently:
// a single value is accepted where an array is expected, numbers and strings are converted weakly,
// RFC 3339 strings are accepted for time.Time and duration strings for time.Duration.
type JSONCodec struct {
	KeepNulls bool
}

var _ Codec = JSONCodec{}

// Encode is a part of Codec interface.
func (c JSONCodec) Encode(v interface{}) ([]byte, error) {
	switch tv := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return tv, nil
	case json.RawMessage:
		return tv, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if c.KeepNulls || !bytes.Contains(data, []byte("null")) {
		return data, nil
	}
	return dropNullMembers(data)
}

// Decode is a part of Codec interface.
func (c JSONCodec) Decode(data []byte, out interface{}) error {
	switch to := out.(type) {
	case *[]byte:
		*to = append([]byte(nil), data...)
		return nil
	case *string:
		*to = string(data)
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	err := json.Unmarshal(data, out)
	var typeErr *json.UnmarshalTypeError
	if err == nil || !errors.As(err, &typeErr) {
		return err
	}

	// The body is a valid JSON that doesn't fit the target exactly, so decode it leniently.
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv.Elem().Set(reflect.Zero(rv.Elem().Type()))
	}
	var raw interface{}
	if err = json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("make lenient decoder: %w", err)
	}
	return dec.Decode(raw)
}

func dropNullMembers(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(dropNulls(v))
}

func dropNulls(v interface{}) interface{} {
	switch tv := v.(type) {
	case map[string]interface{}:
		for k, member := range tv {
			if member == nil {
				delete(tv, k)
				continue
			}
			tv[k] = dropNulls(member)
		}
	case []interface{}:
		for i := range tv {
			tv[i] = dropNulls(tv[i])
		}
	}
	return v
}
