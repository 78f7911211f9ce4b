package rest

import (
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"

	"relay/pkg/common"
	apperrors "relay/pkg/errors"
	"relay/pkg/routing"
)

// Decoder turns a raw inbound request into the typed payload the bound
// handler receives. Decoding errors become the pipeline result for the
// Handling phase.
type Decoder interface {
	Decode(r *http.Request, entry *routing.Entry, params routing.Params) (interface{}, error)
}

const defaultMaxBodyBytes = 1 << 20 // 1 MiB

// JSONDecoder decodes JSON bodies into the route's payload prototype and
// validates the result with struct tags.
type JSONDecoder struct {
	validate *validator.Validate
	maxBody  int64
}

// NewJSONDecoder creates a JSON decoder with the default body size limit.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{
		validate: validator.New(),
		maxBody:  defaultMaxBodyBytes,
	}
}

// Decode implements Decoder. Routes without a payload prototype yield a nil
// payload; the handler works from path parameters alone.
func (d *JSONDecoder) Decode(r *http.Request, entry *routing.Entry, params routing.Params) (interface{}, error) {
	if entry.NewPayload == nil {
		return nil, nil
	}

	payload := entry.NewPayload()
	if r.Body == nil || r.Body == http.NoBody {
		return nil, apperrors.NewValidationError("request body is required")
	}

	if err := common.ParseJSONBody(r, payload, d.maxBody); err != nil {
		return nil, apperrors.NewValidationError("invalid JSON body").WithCause(err)
	}

	if err := d.validateStruct(payload); err != nil {
		return nil, err
	}

	return payload, nil
}

func (d *JSONDecoder) validateStruct(payload interface{}) error {
	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	err := d.validate.Struct(payload)
	if err == nil {
		return nil
	}

	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		details := make(map[string]interface{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Tag()
		}
		return apperrors.NewValidationError("request validation failed").WithDetails(details)
	}
	return apperrors.NewValidationError("request validation failed").WithCause(err)
}
