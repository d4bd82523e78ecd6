package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"

	"parking-ticket-system/internal/status"
	"parking-ticket-system/models"
)

// TicketsCollection is the PocketBase collection holding ticket records.
const TicketsCollection = "parking_tickets"

const ticketsSort = "-issued_at,-id"

type PocketBaseStore struct {
	app core.App
}

func NewPocketBaseStore(app core.App) *PocketBaseStore {
	return &PocketBaseStore{app: app}
}

func (s *PocketBaseStore) Insert(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	collection, err := s.app.FindCollectionByNameOrId(TicketsCollection)
	if err != nil {
		return nil, &status.StoreError{Op: "insert", Err: err}
	}

	record := core.NewRecord(collection)
	if ticket.ID != "" {
		record.Id = ticket.ID
	}
	record.Set("owner_id", ticket.OwnerID)
	record.Set("license_plate", ticket.LicensePlate)
	record.Set("violation_type", string(ticket.ViolationType))
	record.Set("location", ticket.Location)
	record.Set("notes", ticket.Notes)
	record.Set("amount", ticket.Amount.String())
	record.Set("issued_at", ticket.IssuedAt)
	record.Set("search_vector", SearchVector(ticket))
	for k, v := range patchParams(PaymentPatch{
		Status:        ticket.PaymentStatus,
		Paid:          ticket.Paid,
		PaymentDate:   ticket.PaymentDate,
		PaymentMethod: ticket.PaymentMethod,
	}) {
		record.Set(k, v)
	}

	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return nil, &status.StoreError{Op: "insert", Err: err}
	}

	return recordToTicket(record)
}

func (s *PocketBaseStore) Get(_ context.Context, id string) (*models.Ticket, error) {
	record, err := s.app.FindRecordById(TicketsCollection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", status.ErrTicketNotFound, id)
	}
	if err != nil {
		return nil, &status.StoreError{Op: "get", Err: err}
	}
	return recordToTicket(record)
}

// UpdatePayment issues a single UPDATE guarded by the expected status, so two
// writers racing on the same ticket cannot both apply. Once the UPDATE has
// applied the result is built from the snapshot read beforehand; descriptive
// fields never change, and nothing after the write can report it as failed.
func (s *PocketBaseStore) UpdatePayment(ctx context.Context, id string, expected models.PaymentStatus, patch PaymentPatch) (*models.Ticket, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result, err := s.app.DB().Update(
		TicketsCollection,
		patchParams(patch),
		dbx.HashExp{"id": id, "payment_status": string(expected)},
	).WithContext(ctx).Execute()
	if err != nil {
		return nil, &status.StoreError{Op: "update", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, &status.StoreError{Op: "update", Err: err}
	}
	if affected > 0 {
		return applyPatch(before, patch), nil
	}

	current := before.PaymentStatus
	if latest, err := s.Get(ctx, id); err == nil {
		current = latest.PaymentStatus
	}
	return nil, &status.InvalidStateError{TicketID: id, Current: current}
}

func (s *PocketBaseStore) Query(_ context.Context, q Query) ([]models.Ticket, error) {
	filter, params := buildFilter(q)

	records, err := s.app.FindRecordsByFilter(TicketsCollection, filter, ticketsSort, -1, 0, params)
	if err != nil {
		return nil, &status.StoreError{Op: "query", Err: err}
	}

	tickets := make([]models.Ticket, 0, len(records))
	for _, record := range records {
		t, err := recordToTicket(record)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, nil
}

func buildFilter(q Query) (string, dbx.Params) {
	exprs := []string{}
	params := dbx.Params{}

	if q.OwnerID != "" {
		exprs = append(exprs, "owner_id = {:owner}")
		params["owner"] = q.OwnerID
	}
	if q.Status != "" {
		exprs = append(exprs, "payment_status = {:status}")
		params["status"] = string(q.Status)
	}
	for i, term := range q.Terms {
		name := fmt.Sprintf("term%d", i)
		exprs = append(exprs, fmt.Sprintf("search_vector ~ {:%s}", name))
		params[name] = "% " + term + " %"
	}

	if len(exprs) == 0 {
		return "id != ''", params
	}
	return strings.Join(exprs, " && "), params
}

func patchParams(p PaymentPatch) dbx.Params {
	params := dbx.Params{
		"payment_status": string(p.Status),
		"paid":           p.Paid,
		"payment_date":   "",
		"payment_method": "",
	}
	if p.PaymentDate != nil {
		if dt, err := types.ParseDateTime(*p.PaymentDate); err == nil {
			params["payment_date"] = dt.String()
		}
	}
	if p.PaymentMethod != nil {
		params["payment_method"] = *p.PaymentMethod
	}
	return params
}

func recordToTicket(record *core.Record) (*models.Ticket, error) {
	amount, err := decimal.NewFromString(record.GetString("amount"))
	if err != nil {
		return nil, &status.StoreError{Op: "decode", Err: fmt.Errorf("ticket %s amount: %w", record.Id, err)}
	}

	t := &models.Ticket{
		ID:            record.Id,
		OwnerID:       record.GetString("owner_id"),
		LicensePlate:  record.GetString("license_plate"),
		ViolationType: models.ViolationType(record.GetString("violation_type")),
		Location:      record.GetString("location"),
		Notes:         record.GetString("notes"),
		Amount:        amount,
		IssuedAt:      record.GetDateTime("issued_at").Time(),
		PaymentStatus: models.PaymentStatus(record.GetString("payment_status")),
		Paid:          record.GetBool("paid"),
	}

	if dt := record.GetDateTime("payment_date"); !dt.IsZero() {
		d := dt.Time()
		t.PaymentDate = &d
	}
	if method := record.GetString("payment_method"); method != "" {
		t.PaymentMethod = &method
	}
	return t, nil
}
