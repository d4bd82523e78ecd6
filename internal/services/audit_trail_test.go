package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-ticket-system/models"
)

func TestAuditTrail_RecordCapsList(t *testing.T) {
	db, mock := redismock.NewClientMock()
	trail := NewAuditTrail(db, 10)

	entry := models.AuditEntry{
		TicketID: "t1",
		ActorID:  "alice",
		Step:     "begin",
		Status:   models.StatusProcessing,
		At:       fixedNow,
	}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	mock.ExpectLPush("audit:ticket:t1", string(data)).SetVal(1)
	mock.ExpectLTrim("audit:ticket:t1", 0, 9).SetVal("OK")

	require.NoError(t, trail.Record(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditTrail_RecordError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	trail := NewAuditTrail(db, 10)

	entry := models.AuditEntry{TicketID: "t1", Step: "commit", At: fixedNow}
	data, _ := json.Marshal(entry)
	mock.ExpectLPush("audit:ticket:t1", string(data)).SetErr(errors.New("connection refused"))

	assert.Error(t, trail.Record(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditTrail_History(t *testing.T) {
	db, mock := redismock.NewClientMock()
	trail := NewAuditTrail(db, 0)

	newest, _ := json.Marshal(models.AuditEntry{TicketID: "t1", Step: "commit", Status: models.StatusPaid, At: fixedNow})
	oldest, _ := json.Marshal(models.AuditEntry{TicketID: "t1", Step: "begin", Status: models.StatusProcessing, At: fixedNow})
	mock.ExpectLRange("audit:ticket:t1", 0, -1).SetVal([]string{string(newest), string(oldest)})

	history, err := trail.History(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "commit", history[0].Step)
	assert.Equal(t, models.StatusProcessing, history[1].Status)
	assert.True(t, history[0].At.Equal(fixedNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditTrail_HistoryCorruptEntry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	trail := NewAuditTrail(db, 5)

	mock.ExpectLRange("audit:ticket:t1", 0, -1).SetVal([]string{"{not json"})

	_, err := trail.History(context.Background(), "t1")
	assert.Error(t, err)
}
