package middleware

import (
	"errors"
	"net/http"

	"github.com/fabriqd/fabriq/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func Bind[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.Error(common.Errf(http.StatusBadRequest, "invalid json: %v", err.Error()))
		return false
	}

	if err := validate.Struct(dest); err != nil {
		c.Error(common.APIError{
			Status:  http.StatusBadRequest,
			Message: "validation failed",
			Fields:  FormatValidationErrors(err),
		})
		return false
	}

	return true
}

// FormatValidationErrors turns validator tag failures into messages a job
// submitter can act on without knowing the tag vocabulary.
func FormatValidationErrors(err error) map[string]any {
	fields := map[string]any{}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fields
	}

	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			fields[e.Field()] = "is required"
		case "oneof":
			fields[e.Field()] = "must be one of: " + e.Param()
		case "gte":
			fields[e.Field()] = "must be at least " + e.Param()
		case "lte":
			fields[e.Field()] = "must be at most " + e.Param()
		case "url":
			fields[e.Field()] = "must be a valid URL"
		default:
			fields[e.Field()] = "failed " + e.Tag() + " check"
		}
	}
	return fields
}
