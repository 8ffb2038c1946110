package provider

import (
	"context"

	"github.com/flynn-ai/unichat/internal/model"
	"github.com/flynn-ai/unichat/pkg/protocol"
)

// Handler is one provider family's request/response/stream/error set.
// Every error it returns is already normalized.
type Handler interface {
	Complete(ctx context.Context, conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts Options) (*protocol.Response, error)
	Stream(ctx context.Context, conversation []protocol.Message, tools []protocol.Tool, spec model.Spec, opts Options) (ChunkStream, error)
}
