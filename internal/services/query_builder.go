package services

import (
	"strings"

	"parking-ticket-system/internal/status"
	"parking-ticket-system/internal/store"
	"parking-ticket-system/models"
)

// BuildQuery turns a listing request into a store query. Non-admins are
// always scoped to their own tickets; nothing in searchTerm or statusFilter
// can widen that scope.
func BuildQuery(requester models.Identity, searchTerm, statusFilter string) (store.Query, error) {
	var q store.Query

	if !requester.IsAdmin {
		if requester.ID == "" {
			return store.Query{}, status.NewValidationError("requester", "cannot be blank")
		}
		q.OwnerID = requester.ID
	}

	q.Terms = store.Tokenize(searchTerm)

	filter := strings.ToLower(strings.TrimSpace(statusFilter))
	if filter != "" && filter != models.StatusFilterAll {
		s := models.PaymentStatus(filter)
		if !s.Valid() {
			return store.Query{}, status.NewValidationError("status", "must be one of all, pending, processing, paid, failed")
		}
		q.Status = s
	}

	return q, nil
}
