package anthropic

import (
	stderrors "errors"

	"github.com/flynn-ai/unichat/internal/errors"
)

// NormalizeError maps an Anthropic failure onto the shared taxonomy: typed
// API errors first by error type and then by status, transport failures as
// connection errors, anything else through the generic normalizer.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return errors.NewBuilder(kindForAPIError(apiErr), apiErr.Message).
			Provider(providerName).
			Status(apiErr.StatusCode).
			Wrap(err).
			WithContext("type", apiErr.Type).
			Build()
	}

	return errors.Normalize(providerName, err)
}

func kindForAPIError(e *APIError) errors.Kind {
	switch e.Type {
	case "rate_limit_error":
		return errors.KindRateLimited
	case "invalid_request_error":
		return errors.KindBadRequest
	}
	if e.StatusCode == 0 {
		return errors.KindAPIError
	}
	return errors.KindForStatus(e.StatusCode)
}
