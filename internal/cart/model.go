package cart

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxQuantity = 10
	MaxServices = 20

	DefaultTTL = 30 * 24 * time.Hour
)

// ServiceSnapshot is copied into the cart when a service is added. Later
// changes to the service itself never reach carts holding a snapshot.
type ServiceSnapshot struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Duration    int             `json:"duration"`
	Taxable     bool            `json:"taxable"`
}

type CartItem struct {
	ServiceID    string          `json:"serviceId"`
	Snapshot     ServiceSnapshot `json:"snapshot"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	AddedAt      time.Time       `json:"addedAt"`
	LastModified time.Time       `json:"lastModified"`
}

// Items is the ordered item list. It is stored as a single JSONB document so
// items and summary are written by one statement.
type Items []CartItem

func (it Items) Value() (driver.Value, error) {
	if it == nil {
		it = Items{}
	}
	return json.Marshal(it)
}

func (it *Items) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*it = Items{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cart items: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, it)
}

func (it Items) index(serviceID string) int {
	for i := range it {
		if it[i].ServiceID == serviceID {
			return i
		}
	}
	return -1
}

type Summary struct {
	TotalServices int             `json:"totalServices"`
	TotalItems    int             `json:"totalItems"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	Total         decimal.Decimal `json:"total"`
}

type Cart struct {
	ID      uuid.UUID
	UserID  uint
	Items   Items
	Summary Summary

	// Version is bumped on every persisted write. Zero means the cart has
	// never been stored.
	Version int64

	LastUpdated time.Time
	ExpiresAt   time.Time
}

// ItemInput is a service the caller wants in the cart. Quantity is ignored
// by AddItem, which always adds one.
type ItemInput struct {
	ServiceID string
	Snapshot  ServiceSnapshot
	Quantity  int
}

func (c *Cart) clone() *Cart {
	cp := *c
	cp.Items = append(Items{}, c.Items...)
	return &cp
}
