package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandWireShapes(t *testing.T) {
	data, err := NewSetCommand("k", "v").Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"Set":{"key":"k","value":"v"}}`, string(data))

	data, err = NewGetCommand("k").Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"Get":{"key":"k"}}`, string(data))

	data, err = NewRmCommand("k").Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"Rm":{"key":"k"}}`, string(data))
}

func TestCommandDecode(t *testing.T) {
	var cmd Command
	require.NoError(t, json.Unmarshal([]byte(`{"Set":{"key":"a","value":"1"}}`), &cmd))
	require.NotNil(t, cmd.Set)
	require.Equal(t, "a", cmd.Set.Key)
	require.Equal(t, "1", cmd.Set.Value)
}

func TestResponseWireShapes(t *testing.T) {
	data, err := OkResponse().Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"Ok":null}`, string(data))

	data, err = OkValueResponse("hello").Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"Ok":"hello"}`, string(data))

	data, err = ErrResponse(KeyNotFoundMessage).Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{"Err":"Key not found"}`, string(data))
}

func TestResponseRoundTrip(t *testing.T) {
	original := OkValueResponse("v")
	data, err := original.Encode()
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	value, ok := decoded.Value()
	require.True(t, ok)
	require.Equal(t, "v", value)
	require.True(t, decoded.IsOk())

	errResp := ErrResponse("Key not found")
	data, err = errResp.Encode()
	require.NoError(t, err)

	var decodedErr Response
	require.NoError(t, json.Unmarshal(data, &decodedErr))
	require.False(t, decodedErr.IsOk())
	msg, ok := decodedErr.ErrorMessage()
	require.True(t, ok)
	require.Equal(t, "Key not found", msg)
}
