package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func TestSerializers(t *testing.T) {
	t.Parallel()

	serializers := map[string]session.Serializer{
		"msgpack": session.MsgpackSerializer{},
		"json":    session.JSONSerializer{},
	}

	for name, s := range serializers {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			payload, err := s.Marshal(map[string]any{
				"user":   "alice",
				"count":  3,
				"active": true,
				"nested": map[string]any{"role": "admin"},
			})
			require.NoError(t, err)

			data, err := s.Unmarshal(payload)
			require.NoError(t, err)
			assert.Equal(t, "alice", data["user"])
			assert.Equal(t, true, data["active"])
			assert.EqualValues(t, 3, data["count"])

			nested, ok := data["nested"].(map[string]any)
			require.True(t, ok, "nested maps decode as map[string]any, got %T", data["nested"])
			assert.Equal(t, "admin", nested["role"])

			empty, err := s.Unmarshal(nil)
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			_, err = s.Unmarshal([]byte{0xc1, 0xff, '{'})
			assert.ErrorIs(t, err, session.ErrSerialization)
		})
	}
}

func TestMsgpackSerializer_Deterministic(t *testing.T) {
	t.Parallel()

	data := map[string]any{"b": 1, "a": 2, "c": 3, "d": "x"}
	first, err := session.MsgpackSerializer{}.Marshal(data)
	require.NoError(t, err)
	for range 10 {
		again, err := session.MsgpackSerializer{}.Marshal(data)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestJSONSerializer_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := session.JSONSerializer{}.Marshal(map[string]any{"ch": make(chan int)})
	assert.ErrorIs(t, err, session.ErrSerialization)
}
