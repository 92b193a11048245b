package httpapi

import (
	"net/http"

	"servicehub-be/internal/cart"

	"github.com/gorilla/mux"
)

type cartHandler struct {
	svc cart.Service
}

func attachCartHandler(router *mux.Router, svc cart.Service) {
	h := cartHandler{svc: svc}
	r := router.PathPrefix("/cart").Subrouter()

	r.HandleFunc("", h.get).Methods(http.MethodGet)
	r.HandleFunc("", h.save).Methods(http.MethodPut)
	r.HandleFunc("", h.clear).Methods(http.MethodDelete)
	r.HandleFunc("/items", h.addItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{serviceId}", h.setQuantity).Methods(http.MethodPut)
	r.HandleFunc("/items/{serviceId}", h.removeItem).Methods(http.MethodDelete)
	r.HandleFunc("/restore", h.restore).Methods(http.MethodPost)
}

func (h cartHandler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, "", cart.MapCartToResponse(c))
}

func (h cartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req CartItemRequest
	if err := decode(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := checkPrices(req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	in := req.input()
	h.respond(w, r, "item added to cart", func() (*cart.Cart, error) {
		return h.svc.AddItem(r.Context(), in)
	})
}

func (h cartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := decode(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	serviceID := mux.Vars(r)["serviceId"]
	h.respond(w, r, "cart updated", func() (*cart.Cart, error) {
		return h.svc.SetQuantity(r.Context(), serviceID, *req.Quantity)
	})
}

func (h cartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	serviceID := mux.Vars(r)["serviceId"]
	h.respond(w, r, "item removed from cart", func() (*cart.Cart, error) {
		return h.svc.RemoveItem(r.Context(), serviceID)
	})
}

func (h cartHandler) clear(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "cart cleared", func() (*cart.Cart, error) {
		return h.svc.Clear(r.Context())
	})
}

func (h cartHandler) save(w http.ResponseWriter, r *http.Request) {
	var req CartItemsRequest
	if err := decode(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := checkPrices(req.Items...); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	items := req.inputs()
	h.respond(w, r, "cart saved", func() (*cart.Cart, error) {
		return h.svc.Save(r.Context(), items)
	})
}

func (h cartHandler) restore(w http.ResponseWriter, r *http.Request) {
	var req CartItemsRequest
	if err := decode(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := checkPrices(req.Items...); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	items := req.inputs()
	h.respond(w, r, "cart restored", func() (*cart.Cart, error) {
		return h.svc.Restore(r.Context(), items)
	})
}

func (h cartHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func() (*cart.Cart, error),
) {
	var c *cart.Cart
	err := retryOnConflict(r.Context(), func() (err error) {
		c, err = op()
		return err
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, message, cart.MapCartToResponse(c))
}
