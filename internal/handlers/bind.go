package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/yukikurage/task-assignment-api/internal/errors"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates the request body into out. On failure it
// writes a 400 response naming the first offending field and returns false.
func BindJSON(c *gin.Context, out interface{}) bool {
	err := c.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		apierrors.RespondWithError(c, http.StatusRequestEntityTooLarge,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, "Request body too large"))
		return false
	}

	fields := parseBindError(err, out)
	apiErr := apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, "Invalid request body")
	if len(fields) > 0 {
		apiErr.Field = fields[0].Field
		apiErr.Message = fields[0].Field + " " + fields[0].Message
		apiErr.Details = gin.H{"fields": fields}
	}
	apierrors.RespondWithError(c, http.StatusBadRequest, apiErr)
	return false
}

func parseBindError(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			fields = append(fields, FieldError{
				Field:   jsonPathFromValidatorError(rootType, fe),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return fields
	}

	var typeError *json.UnmarshalTypeError
	if errors.As(err, &typeError) && typeError.Field != "" {
		field := mapStructPathToJSONPath(rootType, strings.Split(typeError.Field, "."))
		return []FieldError{{
			Field:   field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", typeError.Type.String()),
		}}
	}

	// malformed JSON, empty body and custom decoder errors carry no field
	if errors.Is(err, io.EOF) {
		return []FieldError{{Field: "body", Rule: "required", Message: "is required"}}
	}
	return nil
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		return t
	}
	return nil
}

func jsonPathFromValidatorError(rootType reflect.Type, fe validator.FieldError) string {
	// Namespace format is "<StructName>.<Field>[.<NestedField>...]".
	namespace := fe.StructNamespace()
	if namespace == "" {
		return fe.Field()
	}

	parts := strings.Split(namespace, ".")
	if rootType != nil && rootType.Name() != "" && len(parts) > 0 && parts[0] == rootType.Name() {
		parts = parts[1:]
	}

	if path := mapStructPathToJSONPath(rootType, parts); path != "" {
		return path
	}
	return fe.Field()
}

func mapStructPathToJSONPath(rootType reflect.Type, parts []string) string {
	current := rootType
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			continue
		}

		jsonName := part
		var next reflect.Type
		if current != nil {
			for current.Kind() == reflect.Pointer {
				current = current.Elem()
			}
			if current.Kind() == reflect.Struct {
				if sf, ok := current.FieldByName(part); ok {
					jsonName = jsonNameFromStructField(sf)
					next = sf.Type
				}
			}
		}

		out = append(out, jsonName)
		current = next
	}

	return strings.Join(out, ".")
}

func jsonNameFromStructField(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "url":
		return "must be a valid URL"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
