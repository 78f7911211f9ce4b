package rest

import (
	"net/http"

	"relay/pkg/common"
	apperrors "relay/pkg/errors"
	"relay/pkg/pipeline"
)

// Encoder writes a pipeline result as the transport-level response. Invoked
// after the pipeline reaches Done.
type Encoder interface {
	Encode(w http.ResponseWriter, res *pipeline.Result)
}

// JSONEncoder encodes results in the standard API envelope.
type JSONEncoder struct{}

// NewJSONEncoder creates a JSON response encoder.
func NewJSONEncoder() JSONEncoder {
	return JSONEncoder{}
}

// Encode implements Encoder.
func (JSONEncoder) Encode(w http.ResponseWriter, res *pipeline.Result) {
	if !res.Failed() {
		common.RespondJSON(w, http.StatusOK, res.Value)
		return
	}

	status := apperrors.HTTPStatusOf(res.Err)
	if appErr := apperrors.GetAppError(res.Err); appErr != nil {
		code := appErr.Code
		if code == "" {
			code = string(appErr.Type)
		}
		common.RespondErrorWithDetails(w, status, code, appErr.Message, appErr.Details)
		return
	}

	common.RespondError(w, status, string(apperrors.ErrorTypeInternal), "internal server error")
}
