/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type codecItem struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

func TestJSONCodec_Encode(t *testing.T) {
	codec := JSONCodec{}

	t.Run("nil", func(t *testing.T) {
		data, err := codec.Encode(nil)
		require.NoError(t, err)
		require.Nil(t, data)
	})

	t.Run("raw bytes are sent as is", func(t *testing.T) {
		data, err := codec.Encode([]byte(`{"a":null}`))
		require.NoError(t, err)
		require.Equal(t, `{"a":null}`, string(data))

		data, err = codec.Encode(json.RawMessage(`[1,2]`))
		require.NoError(t, err)
		require.Equal(t, `[1,2]`, string(data))
	})

	t.Run("null members are dropped", func(t *testing.T) {
		type nested struct {
			X *int `json:"x"`
			Y int  `json:"y"`
		}
		body := struct {
			A *string `json:"a"`
			B string  `json:"b"`
			N nested  `json:"n"`
			L []*int  `json:"l"`
		}{B: "x", N: nested{Y: 12345678901}, L: []*int{nil}}

		data, err := codec.Encode(body)
		require.NoError(t, err)
		require.JSONEq(t, `{"b":"x","n":{"y":12345678901},"l":[null]}`, string(data))
	})

	t.Run("null members are kept", func(t *testing.T) {
		data, err := JSONCodec{KeepNulls: true}.Encode(map[string]interface{}{"a": nil})
		require.NoError(t, err)
		require.Equal(t, `{"a":null}`, string(data))
	})

	t.Run("unsupported value", func(t *testing.T) {
		_, err := codec.Encode(make(chan int))
		require.Error(t, err)
	})
}

func TestJSONCodec_Decode(t *testing.T) {
	codec := JSONCodec{}

	t.Run("raw targets", func(t *testing.T) {
		var b []byte
		require.NoError(t, codec.Decode([]byte(`not json`), &b))
		require.Equal(t, "not json", string(b))

		var s string
		require.NoError(t, codec.Decode([]byte(`plain text`), &s))
		require.Equal(t, "plain text", s)
	})

	t.Run("empty body leaves zero value", func(t *testing.T) {
		var item codecItem
		require.NoError(t, codec.Decode(nil, &item))
		require.Zero(t, item)
		require.NoError(t, codec.Decode([]byte(" \n"), &item))
		require.Zero(t, item)
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		var item codecItem
		require.NoError(t, codec.Decode([]byte(`{"id":7,"name":"n","extra":true}`), &item))
		require.Equal(t, codecItem{ID: 7, Name: "n"}, item)
	})

	t.Run("single value is accepted as array", func(t *testing.T) {
		var items []codecItem
		require.NoError(t, codec.Decode([]byte(`{"id":1,"name":"one"}`), &items))
		require.Equal(t, []codecItem{{ID: 1, Name: "one"}}, items)
	})

	t.Run("weakly typed values", func(t *testing.T) {
		var item codecItem
		require.NoError(t, codec.Decode([]byte(`{"id":"5","name":"five"}`), &item))
		require.Equal(t, codecItem{ID: 5, Name: "five"}, item)
	})

	t.Run("duration strings", func(t *testing.T) {
		var v struct {
			Timeout time.Duration `json:"timeout"`
		}
		require.NoError(t, codec.Decode([]byte(`{"timeout":"1m30s"}`), &v))
		require.Equal(t, 90*time.Second, v.Timeout)
	})

	t.Run("malformed json", func(t *testing.T) {
		var item codecItem
		require.Error(t, codec.Decode([]byte(`{"id":`), &item))
	})
}
