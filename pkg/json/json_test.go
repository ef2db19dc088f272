package json

import (
	stdjson "encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Kind    string             `json:"kind"`
	Payload stdjson.RawMessage `json:"payload,omitempty"`
}

func TestRawMessagePassesThroughUntouched(t *testing.T) {
	in := envelope{Kind: "solution-input", Payload: stdjson.RawMessage(`{"answer":"42"}`)}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, "solution-input", out.Kind)
	assert.JSONEq(t, `{"answer":"42"}`, string(out.Payload))
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var out envelope
	assert.Error(t, Unmarshal([]byte(`not json`), &out))
}
