package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

// writeResult maps a backend outcome onto the wire envelope. All routing
// knowledge about statuses and codes lives in the backend's typed errors.
func writeResult(w http.ResponseWriter, data interface{}, aerr *apierror.Error) {
	if aerr != nil {
		writeAPIError(w, aerr)
		return
	}
	writeSuccess(w, data)
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(model.SuccessResponse{OK: true, Data: data})
	if err != nil {
		writeAPIError(w, apierror.Internal("encoding response: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(res)
}

func writeAPIError(w http.ResponseWriter, aerr *apierror.Error) {
	logrus.Debugf("request failed: %v", aerr)

	res, _ := json.Marshal(model.ErrorResponse{
		Status:            aerr.Status,
		Code:              aerr.Code,
		Message:           aerr.Message,
		RetryAfterSeconds: aerr.RetryAfterSeconds,
	})

	w.Header().Set("Content-Type", "application/json")
	if aerr.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(aerr.RetryAfterSeconds))
	}
	w.WriteHeader(aerr.Status)
	_, _ = w.Write(res)
}
