package httpapi

import (
	"context"
	"net/http"

	"servicehub-be/internal/address"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type addressHandler struct {
	svc address.Service
}

func attachAddressHandler(router *mux.Router, svc address.Service) {
	h := addressHandler{svc: svc}
	r := router.PathPrefix("/addresses").Subrouter()

	r.HandleFunc("", h.list).Methods(http.MethodGet)
	r.HandleFunc("", h.create).Methods(http.MethodPost)
	r.HandleFunc("/deleted", h.listDeleted).Methods(http.MethodGet)
	r.HandleFunc("/default", h.getDefault).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/{id}", h.softDelete).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/default", h.setDefault).Methods(http.MethodPost)
	r.HandleFunc("/{id}/restore", h.restore).Methods(http.MethodPost)
	r.HandleFunc("/{id}/permanent", h.hardDelete).Methods(http.MethodDelete)
}

func (h addressHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, "", address.MapAddressesToResponse(list))
}

func (h addressHandler) listDeleted(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListDeleted(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, "", address.MapAddressesToResponse(list))
}

func (h addressHandler) getDefault(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetDefault(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, "", address.MapAddressToResponse(a))
}

func (h addressHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, "", address.MapAddressToResponse(a))
}

func (h addressHandler) create(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if err := decode(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	input := address.CreateAddressInput{
		Fields:       req.fields(),
		SetAsDefault: req.IsDefault != nil && *req.IsDefault,
	}

	var res *address.Result
	err := retryOnConflict(r.Context(), func() (err error) {
		res, err = h.svc.Create(r.Context(), input)
		return err
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, defaultMessage(res.Reason), address.MapResultToResponse(res))
}

func (h addressHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var req AddressRequest
	if err := decode(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	input := address.UpdateAddressInput{
		AddressID:    id,
		Fields:       req.fields(),
		SetAsDefault: req.IsDefault,
	}

	var res *address.Result
	err = retryOnConflict(r.Context(), func() (err error) {
		res, err = h.svc.Update(r.Context(), input)
		return err
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, "address updated", address.MapResultToResponse(res))
}

func (h addressHandler) setDefault(w http.ResponseWriter, r *http.Request) {
	h.mutateByID(w, r, "default address updated", h.svc.SetDefault)
}

func (h addressHandler) softDelete(w http.ResponseWriter, r *http.Request) {
	h.mutateByID(w, r, "address deleted, choose a new default if needed", h.svc.SoftDelete)
}

func (h addressHandler) restore(w http.ResponseWriter, r *http.Request) {
	h.mutateByID(w, r, "address restored", h.svc.Restore)
}

func (h addressHandler) hardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if err := h.svc.HardDelete(r.Context(), id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h addressHandler) mutateByID(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(ctx context.Context, id uuid.UUID) (*address.Result, error),
) {
	id, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	var res *address.Result
	err = retryOnConflict(r.Context(), func() (err error) {
		res, err = op(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, message, address.MapResultToResponse(res))
}

func defaultMessage(reason address.DefaultReason) string {
	switch reason {
	case address.ReasonFirstAddress:
		return "address created and set as default because it is your first address"
	case address.ReasonRequested:
		return "address created and set as default"
	case address.ReasonNoExistingDefault:
		return "address created and set as default because no default was set"
	}
	return "address created"
}
