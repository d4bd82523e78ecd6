package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ticket-system/internal/status"
	"parking-ticket-system/internal/store"
	"parking-ticket-system/models"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name      string
		requester models.Identity
		search    string
		filter    string
		want      store.Query
	}{
		{
			name:      "non-admin is scoped",
			requester: alice,
			want:      store.Query{OwnerID: "alice", Terms: []string{}},
		},
		{
			name:      "admin is unscoped",
			requester: admin,
			filter:    "all",
			want:      store.Query{Terms: []string{}},
		},
		{
			name:      "search terms are tokenized",
			requester: alice,
			search:    "  Main St,  MAIN ",
			want:      store.Query{OwnerID: "alice", Terms: []string{"main", "st"}},
		},
		{
			name:      "status filter is case insensitive",
			requester: alice,
			filter:    " PAID ",
			want:      store.Query{OwnerID: "alice", Terms: []string{}, Status: models.StatusPaid},
		},
		{
			name:      "owner-looking search text stays a search term",
			requester: alice,
			search:    "owner_id=bob",
			want:      store.Query{OwnerID: "alice", Terms: []string{"owner", "id", "bob"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildQuery(tt.requester, tt.search, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want.OwnerID, got.OwnerID)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.ElementsMatch(t, tt.want.Terms, got.Terms)
		})
	}
}

func TestBuildQuery_Rejects(t *testing.T) {
	_, err := BuildQuery(alice, "", "refunded")
	assert.ErrorIs(t, err, status.ErrValidation)

	_, err = BuildQuery(models.Identity{}, "", "")
	assert.ErrorIs(t, err, status.ErrValidation)
}

func TestBuildQuery_NonAdminNeverWidened(t *testing.T) {
	inputs := []string{"", "all", "*", "%", "' OR 1=1 --", "owner_id != ''", "bob"}

	for _, search := range inputs {
		q, err := BuildQuery(alice, search, "")
		require.NoError(t, err)
		assert.Equal(t, "alice", q.OwnerID, "search %q", search)
	}
}
