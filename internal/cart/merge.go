package cart

import "time"

// Merge reconciles a client-held item list with the stored one. The server
// copy wins on every service id it already holds; client items only fill
// gaps, in client order, until the cart reaches MaxServices. Client
// quantities are clamped to MaxQuantity and non-positive ones are ignored.
//
// Merge(Merge(s, c), c) == Merge(s, c).
func Merge(server Items, client []ItemInput, now time.Time) Items {
	out := append(make(Items, 0, len(server)+len(client)), server...)

	for _, in := range client {
		if len(out) >= MaxServices {
			break
		}
		if in.ServiceID == "" || in.Quantity <= 0 || out.index(in.ServiceID) >= 0 {
			continue
		}

		qty := in.Quantity
		if qty > MaxQuantity {
			qty = MaxQuantity
		}
		out = append(out, newItem(in, qty, now))
	}

	return out
}
