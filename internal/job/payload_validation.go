package job

import (
	"encoding/json"
	"net/http"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/middleware"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validatePayload checks a raw payload against the typed schema of the job
// family it is bound for, before anything is enqueued.
func validatePayload[T any](raw json.RawMessage) error {
	var payload T

	if err := json.Unmarshal(raw, &payload); err != nil {
		return common.APIError{
			Status:  http.StatusBadRequest,
			Message: "payload does not match the schema for this job",
		}
	}

	if err := validate.Struct(payload); err != nil {
		return common.APIError{
			Status:  http.StatusBadRequest,
			Message: "payload failed schema validation for this job",
			Fields:  middleware.FormatValidationErrors(err),
		}
	}

	return nil
}
