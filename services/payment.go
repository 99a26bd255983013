package services

import (
	"fmt"
	"net/url"
	"strconv"

	"lomig-tournaments/models"

	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// inr formats rupee amounts with Indian digit grouping for display strings.
var inr = message.NewPrinter(language.MustParse("en-IN"))

// PaymentInstructions builds the off-band UPI payment surface for a draft:
// the deep link the user pays through, per-app variants and a scannable QR.
// The payment itself happens entirely outside this system; the only evidence
// that comes back is the user-supplied UTR number.
type PaymentInstructions struct {
	VPA       string // collecting UPI id, e.g. "merchant@upi"
	PayeeName string
}

// Link renders the standard UPI deep link:
// upi://pay?pa=VPA&pn=PAYEE&am=AMOUNT&cu=INR&tn=Tournament_MATCHID
func (p *PaymentInstructions) Link(draft *models.RegistrationDraft) string {
	q := url.Values{}
	q.Set("pa", p.VPA)
	q.Set("pn", p.PayeeName)
	q.Set("am", strconv.FormatFloat(draft.EntryFee, 'f', -1, 64))
	q.Set("cu", "INR")
	q.Set("tn", "Tournament_"+draft.MatchID)
	return "upi://pay?" + q.Encode()
}

// AppLinks returns the per-app URI-scheme variants of the deep link.
func (p *PaymentInstructions) AppLinks(draft *models.RegistrationDraft) map[string]string {
	link := p.Link(draft)
	return map[string]string{
		"phonepe": "phonepe://" + link,
		"gpay":    "gpay://" + link,
		"paytm":   "paytmmp://" + link,
	}
}

// QRCode renders the deep link as a PNG.
func (p *PaymentInstructions) QRCode(draft *models.RegistrationDraft) ([]byte, error) {
	png, err := qrcode.Encode(p.Link(draft), qrcode.High, 200)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment QR: %w", err)
	}
	return png, nil
}

// DisplayFee formats the entry fee for the payment page, "Free" when zero.
func DisplayFee(fee float64) string {
	if fee == 0 {
		return "Free"
	}
	return inr.Sprintf("₹%v", number.Decimal(fee))
}
