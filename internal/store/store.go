package store

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"

	"parking-ticket-system/models"
)

// Query selects tickets. Zero-valued fields do not restrict the result.
// Results are always ordered by issued_at, most recent first.
type Query struct {
	OwnerID string
	Terms   []string
	Status  models.PaymentStatus
}

// PaymentPatch is the full payment state a transition writes.
type PaymentPatch struct {
	Status        models.PaymentStatus
	Paid          bool
	PaymentDate   *time.Time
	PaymentMethod *string
}

// TicketStore owns ticket records. Implementations report a missing ticket
// with status.ErrTicketNotFound and backend failures as *status.StoreError.
type TicketStore interface {
	Insert(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	Get(ctx context.Context, id string) (*models.Ticket, error)

	// UpdatePayment applies patch only while the ticket is in the expected
	// status, as a single conditional write. When the status differs it
	// returns *status.InvalidStateError and changes nothing. Once the write
	// has applied it must not be reported as an error.
	UpdatePayment(ctx context.Context, id string, expected models.PaymentStatus, patch PaymentPatch) (*models.Ticket, error)

	Query(ctx context.Context, q Query) ([]models.Ticket, error)
}

// Tokenize splits text into lower-cased, de-duplicated word tokens.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return lo.Uniq(words)
}

// SearchVector is the indexed text of a ticket: its tokens joined by single
// spaces with a leading and trailing space, so " token " is a whole-word match.
func SearchVector(t *models.Ticket) string {
	tokens := Tokenize(strings.Join([]string{
		t.LicensePlate,
		string(t.ViolationType),
		t.Location,
		t.Notes,
	}, " "))
	if len(tokens) == 0 {
		return ""
	}
	return " " + strings.Join(tokens, " ") + " "
}

// Matches reports whether t satisfies every restriction of q.
func (q Query) Matches(t *models.Ticket) bool {
	if q.OwnerID != "" && t.OwnerID != q.OwnerID {
		return false
	}
	if q.Status != "" && t.PaymentStatus != q.Status {
		return false
	}
	if len(q.Terms) == 0 {
		return true
	}

	vector := SearchVector(t)
	return lo.EveryBy(q.Terms, func(term string) bool {
		return strings.Contains(vector, " "+term+" ")
	})
}

func clonePatch(p PaymentPatch) PaymentPatch {
	out := p
	if p.PaymentDate != nil {
		d := *p.PaymentDate
		out.PaymentDate = &d
	}
	if p.PaymentMethod != nil {
		m := *p.PaymentMethod
		out.PaymentMethod = &m
	}
	return out
}

// applyPatch returns a copy of t with the payment state of p.
func applyPatch(t *models.Ticket, p PaymentPatch) *models.Ticket {
	out := cloneTicket(t)
	p = clonePatch(p)
	out.PaymentStatus = p.Status
	out.Paid = p.Paid
	out.PaymentDate = p.PaymentDate
	out.PaymentMethod = p.PaymentMethod
	return out
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	out := *t
	p := clonePatch(PaymentPatch{PaymentDate: t.PaymentDate, PaymentMethod: t.PaymentMethod})
	out.PaymentDate = p.PaymentDate
	out.PaymentMethod = p.PaymentMethod
	return &out
}
