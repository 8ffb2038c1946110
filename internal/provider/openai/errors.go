package openai

import (
	stderrors "errors"
	"io"
	"net"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/flynn-ai/unichat/internal/errors"
	"github.com/flynn-ai/unichat/internal/model"
)

// NormalizeError maps a go-openai failure onto the shared taxonomy.
func NormalizeError(kind model.Kind, err error) error {
	if err == nil {
		return nil
	}
	name := string(kind)

	var apiErr *goopenai.APIError
	if stderrors.As(err, &apiErr) {
		k := errors.KindAPIError
		if apiErr.HTTPStatusCode != 0 {
			k = errors.KindForStatus(apiErr.HTTPStatusCode)
		}
		b := errors.NewBuilder(k, apiErr.Message).
			Provider(name).
			Status(apiErr.HTTPStatusCode).
			Wrap(err)
		if apiErr.Type != "" {
			b = b.WithContext("type", apiErr.Type)
		}
		return b.Build()
	}

	var reqErr *goopenai.RequestError
	if stderrors.As(err, &reqErr) {
		msg := "request failed"
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return errors.NewBuilder(errors.KindForStatus(reqErr.HTTPStatusCode), msg).
			Provider(name).
			Status(reqErr.HTTPStatusCode).
			Wrap(err).
			Build()
	}

	return errors.Normalize(name, err)
}

// NormalizeStreamError maps a failure read from an open stream. Anything that
// is not a provider error is the connection dropping under the stream.
func NormalizeStreamError(kind model.Kind, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	if stderrors.As(err, &apiErr) || stderrors.As(err, &reqErr) {
		return NormalizeError(kind, err)
	}
	msg := "stream read failed"
	var netErr net.Error
	if stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.As(err, &netErr) {
		msg = "stream interrupted"
	}
	return errors.NewBuilder(errors.KindConnectionFailed, msg).
		Provider(string(kind)).
		Wrap(err).
		Build()
}
