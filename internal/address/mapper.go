package address

import "time"

type Response struct {
	ID          string    `json:"id"`
	House       string    `json:"house"`
	Street      string    `json:"street"`
	FullAddress string    `json:"fullAddress"`
	Landmark    *string   `json:"landmark,omitempty"`
	Pincode     string    `json:"pincode"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Country     string    `json:"country"`
	Phone       string    `json:"phone"`
	AddressType string    `json:"addressType"`
	IsDefault   bool      `json:"isDefault"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ResultResponse struct {
	Address       *Response   `json:"address,omitempty"`
	Addresses     []*Response `json:"addresses"`
	DefaultReason string      `json:"defaultReason,omitempty"`
}

func MapAddressToResponse(a *Address) *Response {
	return &Response{
		ID:          a.ID.String(),
		House:       a.House,
		Street:      a.Street,
		FullAddress: a.FullAddress,
		Landmark:    a.Landmark,
		Pincode:     a.Pincode,
		City:        a.City,
		State:       a.State,
		Country:     a.Country,
		Phone:       a.Phone,
		AddressType: string(a.AddressType),
		IsDefault:   a.IsDefault,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func MapAddressesToResponse(list []*Address) []*Response {
	out := make([]*Response, 0, len(list))
	for _, a := range list {
		out = append(out, MapAddressToResponse(a))
	}
	return out
}

func MapResultToResponse(r *Result) *ResultResponse {
	res := &ResultResponse{
		Addresses:     MapAddressesToResponse(r.Addresses),
		DefaultReason: string(r.Reason),
	}
	if r.Address != nil {
		res.Address = MapAddressToResponse(r.Address)
	}
	return res
}
