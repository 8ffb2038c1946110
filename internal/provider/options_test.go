package provider

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 1.0, o.Temperature)
	assert.True(t, o.Stream)
	assert.False(t, o.Cache.Enabled)
	assert.Empty(t, o.ReasoningEffort.Level())
}

func TestReasoningEffortLevels(t *testing.T) {
	assert.Equal(t, "", ReasoningOff.Level())
	assert.Equal(t, "high", ReasoningOn.Level())
	assert.Equal(t, "low", ReasoningLevel("low").Level())
	assert.Equal(t, "high", ReasoningLevel("").Level())
}

func TestResolveTemperature(t *testing.T) {
	anthropic := model.Spec{Kind: model.KindAnthropic}
	openai := model.Spec{Kind: model.KindOpenAI}
	one := 1.0
	reasoning := model.Spec{Kind: model.KindOpenAI, FixedTemperature: &one}

	assert.Equal(t, 1.0, ResolveTemperature(Options{Temperature: 1.7}, anthropic))
	assert.Equal(t, 0.2, ResolveTemperature(Options{Temperature: 0.2}, anthropic))
	assert.Equal(t, 1.7, ResolveTemperature(Options{Temperature: 1.7}, openai))
	assert.Equal(t, 1.0, ResolveTemperature(Options{Temperature: 0.1}, reasoning))
}

type sliceStream struct {
	chunks []protocol.Chunk
	err    error
	closed bool
}

func (s *sliceStream) Recv() (protocol.Chunk, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return protocol.Chunk{}, s.err
		}
		return protocol.Chunk{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

func TestDrain(t *testing.T) {
	s := &sliceStream{chunks: []protocol.Chunk{{ID: "a"}, {ID: "b"}}}
	got, err := Drain(s)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, s.closed)

	boom := errors.New("boom")
	s = &sliceStream{chunks: []protocol.Chunk{{ID: "a"}}, err: boom}
	got, err = Drain(s)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
	assert.True(t, s.closed)
}
