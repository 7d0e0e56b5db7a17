package types

import "strings"

// Address is a postal address; Complement is the only optional field
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Complement   string `json:"complement,omitempty"`
}

// Validate reports the first missing required field
func (a *Address) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"number", a.Number},
		{"neighborhood", a.Neighborhood},
		{"city", a.City},
		{"state", a.State},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return Validationf("address", "required address field missing: %s", f.name).WithField("field", f.name)
		}
	}
	return nil
}

// Customer is the customer snapshot embedded in an order
type Customer struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email,omitempty"`
	Address *Address `json:"address,omitempty"`
}

// Validate checks required customer fields and, when present, the address
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Validationf("customer", "customer name is required").WithField("field", "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return Validationf("customer", "customer phone is required").WithField("field", "phone")
	}
	if c.Address != nil {
		return c.Address.Validate()
	}
	return nil
}

// Role distinguishes directory entries
type Role string

const (
	RoleCustomer    Role = "customer"
	RoleDistributor Role = "distributor"
)

// DirectoryEntry is a customer or distributor known to the directory
type DirectoryEntry struct {
	ID      int64
	Name    string
	Phone   string
	Email   string
	Address *Address
	Role    Role
}

// Customer returns the order snapshot of this entry
func (d *DirectoryEntry) Customer() Customer {
	c := Customer{Name: d.Name, Phone: d.Phone, Email: d.Email}
	if d.Address != nil {
		addr := *d.Address
		c.Address = &addr
	}
	return c
}
