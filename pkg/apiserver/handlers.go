package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/backend"
	"github.com/primsh/prim.sh-sub000/pkg/model"
	"github.com/primsh/prim.sh-sub000/pkg/version"
)

type handler struct {
	backend backend.Backend
}

func newHandler(b backend.Backend) *handler {
	return &handler{
		backend: b,
	}
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	v := version.Get()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"ok": false}`))
	}
}

func decode(r *http.Request, into interface{}) *apierror.Error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return apierror.InvalidRequest("decoding request body: %v", err)
	}
	return nil
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	var input model.QuoteRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	resp, aerr := h.backend.Quote(r.Context(), input, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var input model.RegisterRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	resp, aerr := h.backend.Register(r.Context(), input, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) recover(w http.ResponseWriter, r *http.Request) {
	var input model.RecoverRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	resp, aerr := h.backend.Recover(r.Context(), input.RecoveryToken, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) configureNameservers(w http.ResponseWriter, r *http.Request) {
	domain := mux.Vars(r)["domain"]
	resp, aerr := h.backend.ConfigureNameservers(r.Context(), domain, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) getRegistration(w http.ResponseWriter, r *http.Request) {
	domain := mux.Vars(r)["domain"]
	resp, aerr := h.backend.GetRegistration(r.Context(), domain, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) listRegistrations(w http.ResponseWriter, r *http.Request) {
	resp, aerr := h.backend.ListRegistrations(r.Context(), callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) createZone(w http.ResponseWriter, r *http.Request) {
	var input model.CreateZoneRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	resp, aerr := h.backend.CreateZone(r.Context(), input, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) getZone(w http.ResponseWriter, r *http.Request) {
	resp, aerr := h.backend.GetZone(r.Context(), mux.Vars(r)["zone"], callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) listZones(w http.ResponseWriter, r *http.Request) {
	resp, aerr := h.backend.ListZones(r.Context(), callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) deleteZone(w http.ResponseWriter, r *http.Request) {
	aerr := h.backend.DeleteZone(r.Context(), mux.Vars(r)["zone"], callerFromContext(r.Context()))
	writeResult(w, map[string]bool{"deleted": aerr == nil}, aerr)
}

func (h *handler) activateZone(w http.ResponseWriter, r *http.Request) {
	resp, aerr := h.backend.ActivateZone(r.Context(), mux.Vars(r)["zone"], callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) verifyZone(w http.ResponseWriter, r *http.Request) {
	resp, aerr := h.backend.Verify(r.Context(), mux.Vars(r)["zone"], callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var input model.RecordRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	resp, aerr := h.backend.CreateRecord(r.Context(), mux.Vars(r)["zone"], input, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	var input model.RecordRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	vars := mux.Vars(r)
	resp, aerr := h.backend.UpdateRecord(r.Context(), vars["zone"], vars["record"], input, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	aerr := h.backend.DeleteRecord(r.Context(), vars["zone"], vars["record"], callerFromContext(r.Context()))
	writeResult(w, map[string]bool{"deleted": aerr == nil}, aerr)
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	resp, aerr := h.backend.ListRecords(r.Context(), mux.Vars(r)["zone"], callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}

func (h *handler) batchRecords(w http.ResponseWriter, r *http.Request) {
	var input model.BatchRecordsRequest
	if aerr := decode(r, &input); aerr != nil {
		writeAPIError(w, aerr)
		return
	}

	resp, aerr := h.backend.BatchRecords(r.Context(), mux.Vars(r)["zone"], input, callerFromContext(r.Context()))
	writeResult(w, resp, aerr)
}
