package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Validation answers a failed ShouldBind* call with 422 and per-field details.
func Validation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field: jsonFieldName(fe),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
		Error(c, http.StatusUnprocessableEntity, "validation_error", "Request validation failed", gin.H{"fields": fields})
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		Error(c, http.StatusUnprocessableEntity, "validation_error", "Malformed JSON body", nil)
	case errors.As(err, &typeErr):
		Error(c, http.StatusUnprocessableEntity, "validation_error", "Invalid field type", gin.H{"field": typeErr.Field})
	default:
		Error(c, http.StatusUnprocessableEntity, "validation_error", "Invalid request body", nil)
	}
}

func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return strings.ToLower(fe.StructField())
	}
	return name
}
