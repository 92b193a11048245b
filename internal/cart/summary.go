package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is applied to the whole subtotal.
var TaxRate = decimal.RequireFromString("0.18")

// Summarize derives the cart summary from its items. It is the only place a
// summary is computed; a stored summary always equals Summarize(items).
func Summarize(items Items) Summary {
	s := Summary{
		TotalServices: len(items),
		Subtotal:      decimal.Zero,
	}
	for _, it := range items {
		s.TotalItems += it.Quantity
		s.Subtotal = s.Subtotal.Add(it.Subtotal)
	}
	s.TaxAmount = s.Subtotal.Mul(TaxRate)
	s.Total = s.Subtotal.Add(s.TaxAmount)
	return s
}

func lineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

func newItem(in ItemInput, qty int, now time.Time) CartItem {
	return CartItem{
		ServiceID:    in.ServiceID,
		Snapshot:     in.Snapshot,
		Quantity:     qty,
		Subtotal:     lineSubtotal(in.Snapshot.Price, qty),
		AddedAt:      now,
		LastModified: now,
	}
}

func (it *CartItem) setQuantity(qty int, now time.Time) {
	it.Quantity = qty
	it.Subtotal = lineSubtotal(it.Snapshot.Price, qty)
	it.LastModified = now
}

// add puts one more unit of in.ServiceID into the cart.
func (c *Cart) add(in ItemInput, now time.Time) error {
	if i := c.Items.index(in.ServiceID); i >= 0 {
		if c.Items[i].Quantity >= MaxQuantity {
			return ErrQuantityLimit
		}
		c.Items[i].setQuantity(c.Items[i].Quantity+1, now)
		return nil
	}

	if len(c.Items) >= MaxServices {
		return ErrServiceLimit
	}
	c.Items = append(c.Items, newItem(in, 1, now))
	return nil
}

// setQuantity overwrites an item's quantity. Zero or less removes it.
func (c *Cart) setQuantity(serviceID string, qty int, now time.Time) error {
	i := c.Items.index(serviceID)
	if i < 0 {
		return ErrCartItemNotFound
	}
	if qty <= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	}
	if qty > MaxQuantity {
		return ErrQuantityLimit
	}
	c.Items[i].setQuantity(qty, now)
	return nil
}

func (c *Cart) remove(serviceID string) {
	if i := c.Items.index(serviceID); i >= 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
}

func (c *Cart) clear() {
	c.Items = Items{}
}

// replace swaps the item list for in. Repeated service ids collapse into the
// first position with the last quantity; non-positive quantities are dropped.
// Items already in the cart keep their AddedAt.
func (c *Cart) replace(in []ItemInput, now time.Time) error {
	next := make(Items, 0, len(in))
	for _, v := range in {
		if v.Quantity > MaxQuantity {
			return ErrQuantityLimit
		}

		j := next.index(v.ServiceID)
		if v.Quantity <= 0 {
			if j >= 0 {
				next = append(next[:j], next[j+1:]...)
			}
			continue
		}
		if j >= 0 {
			next[j] = newItem(v, v.Quantity, next[j].AddedAt)
			next[j].LastModified = now
			continue
		}

		item := newItem(v, v.Quantity, now)
		if k := c.Items.index(v.ServiceID); k >= 0 {
			item.AddedAt = c.Items[k].AddedAt
		}
		next = append(next, item)
	}

	if len(next) > MaxServices {
		return ErrServiceLimit
	}
	c.Items = next
	return nil
}
