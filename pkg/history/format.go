package history

import (
	"fmt"
	"strings"

	"github.com/uhyunpark/bondmm/pkg/booking"
	"github.com/uhyunpark/bondmm/pkg/execution"
	"github.com/uhyunpark/bondmm/pkg/gui"
	"github.com/uhyunpark/bondmm/pkg/inquiry"
	"github.com/uhyunpark/bondmm/pkg/products"
	"github.com/uhyunpark/bondmm/pkg/quote"
	"github.com/uhyunpark/bondmm/pkg/streaming"
)

// Record kinds written by the desk.
const (
	KindPositions  = "positions"
	KindRisk       = "risk"
	KindExecutions = "executions"
	KindStreaming  = "streaming"
	KindInquiries  = "inquiries"
	KindGUI        = "gui"
)

// FileNames maps kinds whose output file differs from "<kind>.txt".
var FileNames = map[string]string{
	KindInquiries: "all_inquiries.txt",
}

func FormatPosition(p booking.Position) string {
	var b strings.Builder
	b.WriteString(p.ProductID())
	for _, book := range p.BookNames() {
		fmt.Fprintf(&b, ",%s,%d", book, p.Quantity(book))
	}
	fmt.Fprintf(&b, ",AGGREGATE,%d", p.Aggregate())
	return b.String()
}

func FormatRisk(r booking.PV01[products.Product]) string {
	return fmt.Sprintf("%s,%.6f,%d", r.Product.ID(), r.PV01, r.Quantity)
}

func FormatExecution(o execution.ExecutionOrder) string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%d,%d,%s,%t",
		o.OrderID, o.ProductID(), o.Side, o.OrderType,
		quote.Format(o.Price), o.VisibleQuantity, o.HiddenQuantity,
		o.ParentOrderID, o.IsChildOrder)
}

func FormatStream(ps streaming.PriceStream) string {
	leg := func(o streaming.PriceStreamOrder) string {
		return fmt.Sprintf("%s,%s,%d,%d", o.Side, quote.Format(o.Price), o.VisibleQuantity, o.HiddenQuantity)
	}
	return ps.ProductID() + "," + leg(ps.BidOrder) + "," + leg(ps.OfferOrder)
}

func FormatInquiry(in inquiry.Inquiry) string {
	return fmt.Sprintf("%s,%s,%s,%d,%s,%s",
		in.InquiryID, in.Product.ID(), in.Side, in.Quantity, quote.Format(in.Price), in.State)
}

func FormatGUI(u gui.Update) string {
	return fmt.Sprintf("%s,%s,%s,%s",
		u.Time.UTC().Format("2006-01-02T15:04:05.000Z"), u.ProductID(),
		quote.Format(u.Price.Mid), quote.Format(u.Price.BidOfferSpread))
}
