package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc-tutoring/match-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sampleMatches() []models.Match {
	return []models.Match{
		{RunID: "run-1", TutorID: "t1", StudentID: "s1", Instrument: "Guitar", DayOfWeek: 1, StartMinute: 930, EndMinute: 960, Score: 1},
		{RunID: "run-1", TutorID: "t1", StudentID: "s2", Instrument: "Guitar", DayOfWeek: 1, StartMinute: 900, EndMinute: 960, Score: 1},
		{RunID: "run-1", TutorID: "t2", StudentID: "s3", Instrument: "Piano", DayOfWeek: 2, StartMinute: 600, EndMinute: 660, Score: 2},
	}
}

func TestMatchRepositoryPersistBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectBegin()
	// created
	mock.ExpectExec("^SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).
		WithArgs(sqlmock.AnyArg(), "run-1", "t1", "s1", "Guitar", 1, 930, 960, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	// already present
	mock.ExpectExec("^SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).
		WithArgs(sqlmock.AnyArg(), "run-1", "t1", "s2", "Guitar", 1, 900, 960, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^RELEASE SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	// failed
	mock.ExpectExec("^SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).
		WithArgs(sqlmock.AnyArg(), "run-1", "t2", "s3", "Piano", 2, 600, 660, 2, sqlmock.AnyArg()).
		WillReturnError(errors.New("foreign key violation"))
	mock.ExpectExec("^ROLLBACK TO SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	result, err := repo.PersistBatch(context.Background(), sampleMatches())
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, "s1", result.Created[0].StudentID)
	assert.NotEmpty(t, result.Created[0].ID)
	require.Len(t, result.Existing, 1)
	assert.Equal(t, "s2", result.Existing[0].StudentID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "s3", result.Failed[0].Match.StudentID)
	assert.Contains(t, result.Failed[0].Err.Error(), "foreign key violation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryPersistBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	result, err := repo.PersistBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryPersistBatchCommitFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	matches := sampleMatches()[:1]
	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO matches")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("^RELEASE SAVEPOINT match_write$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	result, err := repo.PersistBatch(context.Background(), matches)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "commit match batch")
}

func TestMatchRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	columns := []string{"id", "run_id", "tutor_id", "student_id", "instrument", "day_of_week", "start_minute", "end_minute", "score", "created_at",
		"tutor_name", "tutor_email", "student_name", "parent_name", "parent_email"}
	rows := sqlmock.NewRows(columns).
		AddRow("m1", "run-1", "t1", "s1", "Guitar", 1, 930, 960, 1, time.Now(), "Ana", "ana@example.com", "Sam", "Pat", "pat@example.com")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.tutor_id = $1 ORDER BY m.tutor_id ASC, m.student_id ASC LIMIT 10 OFFSET 10")).
		WithArgs("t1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM matches m WHERE m.tutor_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	list, total, err := repo.List(context.Background(), models.MatchFilter{TutorID: "t1", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].TutorName)
	assert.Equal(t, "Guitar", list[0].Instrument)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN students s ON s.id = m.student_id ORDER BY m.tutor_id ASC, m.student_id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tutor_id", "student_id"}))

	list, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchRepositoryListPairs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMatchRepository(db)

	columns := []string{"id", "run_id", "tutor_id", "student_id", "instrument", "day_of_week", "start_minute", "end_minute", "score", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM matches ORDER BY tutor_id ASC, student_id ASC")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("m1", "run-1", "t1", "s2", "Piano", 1, 900, 960, 1, time.Now()))

	pairs, err := repo.ListPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "t1", pairs[0].TutorID)
	assert.Equal(t, "s2", pairs[0].StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(regexp.QuoteMeta("FROM matches ORDER BY")).WillReturnError(errors.New("connection reset"))
	_, err = repo.ListPairs(context.Background())
	assert.ErrorContains(t, err, "list match pairs")
}
