package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"servicehub-be/internal/address"
	"servicehub-be/internal/cart"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type AddressRequest struct {
	House       string  `json:"house" validate:"required,max=100"`
	Street      string  `json:"street" validate:"max=200"`
	FullAddress string  `json:"fullAddress" validate:"required,max=500"`
	Landmark    *string `json:"landmark" validate:"omitempty,max=200"`
	Pincode     string  `json:"pincode" validate:"required,max=12"`
	City        string  `json:"city" validate:"required,max=100"`
	State       string  `json:"state" validate:"required,max=100"`
	Country     string  `json:"country" validate:"required,max=100"`
	Phone       string  `json:"phone" validate:"required,max=20"`
	AddressType string  `json:"addressType" validate:"omitempty,oneof=home office other"`
	IsDefault   *bool   `json:"isDefault"`
}

func (r AddressRequest) fields() address.Fields {
	trim := strings.TrimSpace
	f := address.Fields{
		House:       trim(r.House),
		Street:      trim(r.Street),
		FullAddress: trim(r.FullAddress),
		Pincode:     trim(r.Pincode),
		City:        trim(r.City),
		State:       trim(r.State),
		Country:     trim(r.Country),
		Phone:       trim(r.Phone),
		AddressType: address.AddressType(r.AddressType),
	}
	if r.Landmark != nil {
		if l := trim(*r.Landmark); l != "" {
			f.Landmark = &l
		}
	}
	return f
}

type CartItemRequest struct {
	ServiceID   string          `json:"serviceId" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image" validate:"omitempty,max=500"`
	Category    string          `json:"category" validate:"max=100"`
	Duration    int             `json:"duration" validate:"min=0"`
	Taxable     *bool           `json:"taxable"`
	Quantity    int             `json:"quantity"`
}

func (r CartItemRequest) input() cart.ItemInput {
	taxable := true
	if r.Taxable != nil {
		taxable = *r.Taxable
	}
	return cart.ItemInput{
		ServiceID: strings.TrimSpace(r.ServiceID),
		Snapshot: cart.ServiceSnapshot{
			Name:        strings.TrimSpace(r.Name),
			Description: r.Description,
			Price:       r.Price,
			Image:       r.Image,
			Category:    r.Category,
			Duration:    r.Duration,
			Taxable:     taxable,
		},
		Quantity: r.Quantity,
	}
}

type CartItemsRequest struct {
	Items []CartItemRequest `json:"items" validate:"dive"`
}

func (r CartItemsRequest) inputs() []cart.ItemInput {
	out := make([]cart.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.input())
	}
	return out
}

type QuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	if err := validate.StructCtx(r.Context(), dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func checkPrices(items ...CartItemRequest) error {
	for _, it := range items {
		if it.Price.IsNegative() {
			return fmt.Errorf("%w: price of %s is negative", errBadRequest, it.ServiceID)
		}
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid address id", errBadRequest)
	}
	return id, nil
}
