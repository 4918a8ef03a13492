package types

import (
	"fmt"
	"strings"
)

// Address carries the structured delivery address collected at checkout.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

// String renders the single-line shipping address stored on the order.
func (a Address) String() string {
	number := a.Number
	if a.Complement != "" {
		number = fmt.Sprintf("%s %s", a.Number, a.Complement)
	}
	return fmt.Sprintf("%s, %s - %s, %s - %s, %s",
		a.Street, number, a.Neighborhood, a.City, a.State, a.PostalCode)
}

// DigitsOnly strips every non-digit rune; used for CEP and document numbers.
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
