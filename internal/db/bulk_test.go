package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyInto_EmptyRows(t *testing.T) {
	n, err := CopyInto(context.TODO(), nil, "custom_fields", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyInto_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"custom_fields"}, []string{"view_name", "field_name"}).WillReturnResult(2)

	rows := [][]any{{"ZCUST", "KUNNR"}, {"ZCUST", "NAME1"}}
	n, err := CopyInto(context.Background(), mock, "custom_fields", []string{"view_name", "field_name"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyInto_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"custom_fields"}, []string{"a"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyInto(context.Background(), mock, "custom_fields", []string{"a"}, [][]any{{1}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAll_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "scenarios"`).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"scenarios"}, []string{"scenario", "description"}).WillReturnResult(3)
	mock.ExpectCommit()

	rows := [][]any{{"SD_ORDER", "sales order"}, {"MM_PO", "purchase order"}, {"FI_INV", "invoice"}}
	n, err := ReplaceAll(context.Background(), mock, "scenarios", []string{"scenario", "description"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAll_NoColumns(t *testing.T) {
	_, err := ReplaceAll(context.Background(), nil, "scenarios", nil, nil)
	assert.Error(t, err)
}

func TestReplaceAll_ClearFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "scenarios"`).WillReturnError(fmt.Errorf("boom"))
	mock.ExpectRollback()

	_, err = ReplaceAll(context.Background(), mock, "scenarios", []string{"scenario"}, [][]any{{"x"}})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
