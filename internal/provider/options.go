// Package provider holds what every provider handler set shares: request
// options, the temperature policy and the canonical stream contract.
package provider

import (
	"io"
	"math"

	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// DefaultTemperature is used when the caller does not choose one.
const DefaultTemperature = 1.0

// Options are the per-request knobs a caller controls.
type Options struct {
	Temperature     float64
	Stream          bool
	Cache           CacheHint
	ReasoningEffort ReasoningEffort
}

// DefaultOptions returns temperature 1.0, streaming on, caching and
// reasoning effort off.
func DefaultOptions() Options {
	return Options{
		Temperature: DefaultTemperature,
		Stream:      true,
	}
}

// CacheHint requests provider prompt caching. The namespace is sent as an
// extra cached system text block.
type CacheHint struct {
	Enabled   bool
	Namespace string
}

// NoCache disables prompt caching.
var NoCache = CacheHint{}

// CacheWith enables prompt caching under the given namespace.
func CacheWith(namespace string) CacheHint {
	return CacheHint{Enabled: true, Namespace: namespace}
}

// ReasoningEffort is off, on at the highest level, or a named level.
type ReasoningEffort struct {
	enabled bool
	level   string
}

// HighestEffort is the level "on" maps to.
const HighestEffort = "high"

var (
	// ReasoningOff omits the effort parameter entirely.
	ReasoningOff = ReasoningEffort{}

	// ReasoningOn requests the highest effort level.
	ReasoningOn = ReasoningEffort{enabled: true}
)

// ReasoningLevel requests a named effort level such as "low" or "medium".
// An empty level is the same as ReasoningOn.
func ReasoningLevel(level string) ReasoningEffort {
	return ReasoningEffort{enabled: true, level: level}
}

// Level returns the effort to send, or "" when reasoning effort is off.
func (r ReasoningEffort) Level() string {
	if !r.enabled {
		return ""
	}
	if r.level == "" {
		return HighestEffort
	}
	return r.level
}

// ResolveTemperature applies the model's fixed temperature, then the
// provider's upper bound.
func ResolveTemperature(opts Options, spec model.Spec) float64 {
	if spec.FixedTemperature != nil {
		return *spec.FixedTemperature
	}
	if limit := spec.Kind.MaxTemperature(); limit > 0 {
		return math.Min(opts.Temperature, limit)
	}
	return opts.Temperature
}

// ChunkStream is a pull-based canonical stream. Recv returns io.EOF once
// the stream is exhausted; Close may be called at any point and releases the
// underlying connection.
type ChunkStream interface {
	Recv() (protocol.Chunk, error)
	Close() error
}

// Drain reads a stream to the end and closes it.
func Drain(s ChunkStream) ([]protocol.Chunk, error) {
	defer s.Close()
	var chunks []protocol.Chunk
	for {
		c, err := s.Recv()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, c)
	}
}
