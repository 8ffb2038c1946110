package transform

import "github.com/flynn-ai/unichat/pkg/protocol"

// cachedUserTurns is how many of the most recent user messages get a cache
// breakpoint. Providers cap breakpoints per request; the system prompt and
// the last tool take the others.
const cachedUserTurns = 2

// CacheMessages marks every block of the two most recent user messages as
// cacheable. String content becomes a single cached text block. All other
// messages are returned unchanged.
func CacheMessages(conversation []protocol.Message) []protocol.Message {
	out := protocol.CloneMessages(conversation)
	marked := 0
	for i := len(out) - 1; i >= 0 && marked < cachedUserTurns; i-- {
		if out[i].Role != protocol.RoleUser {
			continue
		}
		out[i].Content = cacheContent(out[i].Content)
		marked++
	}
	return out
}

func cacheContent(c *protocol.Content) *protocol.Content {
	if c == nil {
		return nil
	}
	if !c.IsBlocks() {
		return protocol.BlockContent(protocol.TextBlock(c.String()).Cached())
	}
	blocks := make([]protocol.ContentBlock, len(c.Blocks()))
	for i, b := range c.Blocks() {
		blocks[i] = b.Cached()
	}
	return protocol.BlockContent(blocks...)
}
