// Package inquiry runs the customer inquiry workflow:
//
//	RECEIVED -> QUOTED -> DONE
//
// REJECTED and CUSTOMER_REJECTED are terminal alongside DONE. An operator may
// force any inquiry to REJECTED.
package inquiry

import (
	"strings"

	"github.com/uhyunpark/bondmm/pkg/booking"
	"github.com/uhyunpark/bondmm/pkg/products"
)

// State is the position of an inquiry in the workflow.
type State int8

const (
	Received State = iota
	Quoted
	Done
	Rejected
	CustomerRejected
)

var stateNames = [...]string{"RECEIVED", "QUOTED", "DONE", "REJECTED", "CUSTOMER_REJECTED"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is defined from s.
func (s State) Terminal() bool {
	return s == Done || s == Rejected || s == CustomerRejected
}

// ParseState accepts a state name in any case.
func ParseState(s string) (State, bool) {
	for i, n := range stateNames {
		if strings.EqualFold(s, n) {
			return State(i), true
		}
	}
	return 0, false
}

// Inquiry is a customer request for a price.
type Inquiry struct {
	InquiryID string           `json:"inquiryId"`
	Product   products.Product `json:"product"`
	Side      booking.Side     `json:"side"`
	Quantity  int64            `json:"quantity"`
	Price     float64          `json:"price"`
	State     State            `json:"state"`
}

func (i Inquiry) ID() string { return i.InquiryID }
