// Package model provides provider kinds and the model registry.
package model

import (
	"strings"

	"github.com/flynn-ai/unichat/internal/errors"
)

// Kind identifies the provider family that serves a model. The set is closed:
// every switch over Kind must handle all of them.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	KindMistral   Kind = "mistral"
	KindGrok      Kind = "grok"
	KindGemini    Kind = "gemini"
	KindDeepSeek  Kind = "deepseek"
	KindAlibaba   Kind = "alibaba"
)

// Kinds lists every provider kind.
var Kinds = []Kind{KindAnthropic, KindOpenAI, KindMistral, KindGrok, KindGemini, KindDeepSeek, KindAlibaba}

type kindInfo struct {
	baseURL        string
	envKey         string
	maxTemperature float64
}

var kindTable = map[Kind]kindInfo{
	KindAnthropic: {baseURL: "https://api.anthropic.com", envKey: "ANTHROPIC_API_KEY", maxTemperature: 1.0},
	KindOpenAI:    {baseURL: "https://api.openai.com/v1", envKey: "OPENAI_API_KEY"},
	KindMistral:   {baseURL: "https://api.mistral.ai/v1", envKey: "MISTRAL_API_KEY"},
	KindGrok:      {baseURL: "https://api.x.ai/v1", envKey: "XAI_API_KEY"},
	KindGemini:    {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai/", envKey: "GEMINI_API_KEY"},
	KindDeepSeek:  {baseURL: "https://api.deepseek.com/v1", envKey: "DEEPSEEK_API_KEY"},
	KindAlibaba:   {baseURL: "https://dashscope-intl.aliyuncs.com/compatible-mode/v1", envKey: "DASHSCOPE_API_KEY"},
}

// ParseKind resolves a provider name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := kindTable[k]; !ok {
		return "", errors.Unsupported("unknown provider %q", s)
	}
	return k, nil
}

// BlockOriented reports whether the provider speaks content blocks and
// phase-structured streams rather than flat OpenAI-style deltas.
func (k Kind) BlockOriented() bool {
	return k == KindAnthropic
}

// DefaultBaseURL returns the provider's public endpoint.
func (k Kind) DefaultBaseURL() string {
	return kindTable[k].baseURL
}

// EnvKey names the environment variable holding the provider's API key.
func (k Kind) EnvKey() string {
	return kindTable[k].envKey
}

// MaxTemperature returns the provider's upper temperature bound, or 0 when
// the provider does not need clamping.
func (k Kind) MaxTemperature() float64 {
	return kindTable[k].maxTemperature
}

// SystemMode selects how a reasoning model family receives the system prompt.
type SystemMode string

const (
	// SystemKeep passes the system message through unchanged.
	SystemKeep SystemMode = ""

	// SystemMerge folds the system text into the next message.
	SystemMerge SystemMode = "merge"

	// SystemRelabel turns the first message into a developer message.
	SystemRelabel SystemMode = "relabel"
)

// ParseSystemMode validates a configured system mode.
func ParseSystemMode(s string) (SystemMode, error) {
	switch m := SystemMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SystemKeep, SystemMerge, SystemRelabel:
		return m, nil
	default:
		return "", errors.Unsupported("unknown system mode %q", s)
	}
}

// DefaultMaxTokens is used when the registry has no limit for a model.
const DefaultMaxTokens = 4096

// Spec is the registry entry for one model.
type Spec struct {
	Name string
	Kind Kind

	// MaxTokens is the output ceiling; 0 means DefaultMaxTokens for providers
	// that require one and "unset" for those that don't.
	MaxTokens int

	SystemMode SystemMode

	// NoTools drops tool declarations for models that reject them.
	NoTools bool

	// FixedTemperature overrides whatever the caller asks for.
	FixedTemperature *float64

	// Reasoning marks models that take max_completion_tokens and a
	// reasoning effort.
	Reasoning bool
}

// OutputLimit returns MaxTokens or the default ceiling.
func (s Spec) OutputLimit() int {
	if s.MaxTokens > 0 {
		return s.MaxTokens
	}
	return DefaultMaxTokens
}
