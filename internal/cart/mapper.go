package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemResponse struct {
	ServiceID    string          `json:"serviceId"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image,omitempty"`
	Category     string          `json:"category,omitempty"`
	Duration     int             `json:"duration"`
	Taxable      bool            `json:"taxable"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	AddedAt      time.Time       `json:"addedAt"`
	LastModified time.Time       `json:"lastModified"`
}

type Response struct {
	ID          string          `json:"id"`
	Items       []*ItemResponse `json:"items"`
	Summary     Summary         `json:"summary"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
}

func MapCartToResponse(c *Cart) *Response {
	res := &Response{
		ID:      c.ID.String(),
		Items:   make([]*ItemResponse, 0, len(c.Items)),
		Summary: c.Summary,
	}

	for _, it := range c.Items {
		res.Items = append(res.Items, &ItemResponse{
			ServiceID:    it.ServiceID,
			Name:         it.Snapshot.Name,
			Description:  it.Snapshot.Description,
			Price:        it.Snapshot.Price,
			Image:        it.Snapshot.Image,
			Category:     it.Snapshot.Category,
			Duration:     it.Snapshot.Duration,
			Taxable:      it.Snapshot.Taxable,
			Quantity:     it.Quantity,
			Subtotal:     it.Subtotal,
			AddedAt:      it.AddedAt,
			LastModified: it.LastModified,
		})
	}

	// Unsaved carts have no timestamps yet.
	if !c.LastUpdated.IsZero() {
		t := c.LastUpdated
		res.LastUpdated = &t
	}
	if !c.ExpiresAt.IsZero() {
		t := c.ExpiresAt
		res.ExpiresAt = &t
	}

	return res
}
