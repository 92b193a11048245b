package address

import (
	"time"

	"github.com/google/uuid"
)

// MaxActivePerOwner caps how many active addresses one owner may hold.
const MaxActivePerOwner = 10

type AddressType string

const (
	TypeHome   AddressType = "home"
	TypeOffice AddressType = "office"
	TypeOther  AddressType = "other"
)

func (t AddressType) Valid() bool {
	switch t {
	case TypeHome, TypeOffice, TypeOther:
		return true
	}
	return false
}

type Address struct {
	ID     uuid.UUID
	UserID uint

	House       string
	Street      string
	FullAddress string
	Landmark    *string

	Pincode string
	City    string
	State   string
	Country string
	Phone   string

	AddressType AddressType

	IsDefault bool
	IsActive  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Fields are the owner-editable parts of an address. Values arrive already
// trimmed and validated.
type Fields struct {
	House       string
	Street      string
	FullAddress string
	Landmark    *string
	Pincode     string
	City        string
	State       string
	Country     string
	Phone       string
	AddressType AddressType
}

func (a *Address) apply(f Fields) {
	a.House = f.House
	a.Street = f.Street
	a.FullAddress = f.FullAddress
	a.Landmark = f.Landmark
	a.Pincode = f.Pincode
	a.City = f.City
	a.State = f.State
	a.Country = f.Country
	a.Phone = f.Phone
	a.AddressType = f.AddressType
	if !a.AddressType.Valid() {
		a.AddressType = TypeHome
	}
}

type CreateAddressInput struct {
	Fields
	SetAsDefault bool
}

// UpdateAddressInput edits an active address in place. SetAsDefault nil
// leaves the default flag untouched; false clears it; true makes it default.
type UpdateAddressInput struct {
	AddressID uuid.UUID
	Fields
	SetAsDefault *bool
}

// DefaultReason says why an address became the default. It is advisory,
// for messages shown to the owner.
type DefaultReason string

const (
	ReasonNone              DefaultReason = ""
	ReasonFirstAddress      DefaultReason = "first_address"
	ReasonRequested         DefaultReason = "requested"
	ReasonNoExistingDefault DefaultReason = "no_existing_default"
)

// Result is the outcome of a mutation: the touched address and the owner's
// active addresses as committed by the same call.
type Result struct {
	Address   *Address
	Addresses []*Address
	Reason    DefaultReason
}
