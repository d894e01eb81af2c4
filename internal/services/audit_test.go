package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestActorFrom(t *testing.T) {
	assert.Equal(t, "anonymous", ActorFrom(context.Background()))
	assert.Equal(t, "anonymous", ActorFrom(WithActor(context.Background(), "")))
	assert.Equal(t, "alice", ActorFrom(WithActor(context.Background(), "alice")))
}

func TestAuditor_Record(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WithArgs("alice", ActionPowerOff, "srv1", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	mock.ExpectCommit()

	auditor := NewAuditor(db)
	ctx := WithActor(context.Background(), "alice")
	auditor.Record(ctx, ActionPowerOff, "srv1", true, map[string]interface{}{"message": "ok"})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditor_RecordFailureIsSwallowed(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	auditor := NewAuditor(db)
	assert.NotPanics(t, func() {
		auditor.Record(context.Background(), ActionAddServer, "new", false, nil)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditor_NilIsNoop(t *testing.T) {
	var auditor *Auditor
	assert.NotPanics(t, func() {
		auditor.Record(context.Background(), ActionDeleteServer, "srv1", true, nil)
	})
	assert.NotPanics(t, func() {
		NewAuditor(nil).Record(context.Background(), ActionDeleteServer, "srv1", true, nil)
	})
}
