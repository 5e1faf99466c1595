package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/models"
	"github.com/tmc-tutoring/match-api/internal/service"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

type generatorStub struct {
	summary *dto.GenerationSummary
	err     error
}

func (s *generatorStub) Generate(context.Context) (*dto.GenerationSummary, error) {
	return s.summary, s.err
}

type listerStub struct {
	query dto.MatchQuery
	views []dto.MatchView
}

func (s *listerStub) List(_ context.Context, query dto.MatchQuery) ([]dto.MatchView, *models.Pagination, error) {
	s.query = query
	return s.views, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(s.views)}, nil
}

type exporterStub struct {
	format string
}

func (s *exporterStub) ExportMatches(_ context.Context, format string) (*service.ExportFile, error) {
	s.format = format
	return &service.ExportFile{Filename: "matches.csv", ContentType: "text/csv", Data: []byte("Tutor\n"), Rows: 3}, nil
}

type adminStub struct {
	confirmation string
	password     string
	resetErr     error
}

func (s *adminStub) ResetDatabase(_ context.Context, req dto.ResetRequest) (*dto.ResetResponse, error) {
	s.confirmation = req.ResetConfirmation
	if s.resetErr != nil {
		return nil, s.resetErr
	}
	if req.ResetConfirmation != "Yes" {
		return &dto.ResetResponse{}, nil
	}
	return &dto.ResetResponse{Reset: true, MatchesDeleted: 2, StudentsDeleted: 3, TutorsDeleted: 1}, nil
}

func (s *adminStub) ResetPassword(_ context.Context, password string) error {
	s.password = password
	return nil
}

type importerStub struct {
	pool dto.ParticipantPool
}

func (s *importerStub) ImportPool(_ context.Context, pool dto.ParticipantPool) (*dto.ImportResult, error) {
	s.pool = pool
	return &dto.ImportResult{TutorsCreated: len(pool.Tutors), StudentsCreated: len(pool.Parents), Rejected: []string{"parents[1] parent_email: duplicate"}}, nil
}

type fixture struct {
	generator *generatorStub
	lister    *listerStub
	exporter  *exporterStub
	admin     *adminStub
	importer  *importerStub
	migrated  bool
	closed    bool
}

func newFixture() *fixture {
	return &fixture{
		generator: &generatorStub{},
		lister:    &listerStub{},
		exporter:  &exporterStub{},
		admin:     &adminStub{},
		importer:  &importerStub{},
	}
}

func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context, bool) (*commandLine, func() error, error) {
		cli := &commandLine{
			generator:    f.generator,
			matches:      f.lister,
			exports:      f.exporter,
			admin:        f.admin,
			participants: f.importer,
			migrate: func(context.Context) error {
				f.migrated = true
				return nil
			},
		}
		return cli, func() error { f.closed = true; return nil }, nil
	}
	root := newRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGeneratePrintsSummary(t *testing.T) {
	f := newFixture()
	f.generator.summary = &dto.GenerationSummary{
		RunID:                "run-1",
		State:                models.GenerationStateDone,
		MatchedCount:         2,
		CreatedCount:         1,
		ExistingCount:        1,
		UnmatchedStudents:    []string{"s-3"},
		ExcludedParticipants: []dto.ExcludedParticipant{{ID: "t-9", Role: "tutor", Reason: "no availability"}},
	}

	out, err := f.run(t, "", "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-1: DONE")
	assert.Contains(t, out, "matched   2 (created 1, existing 1)")
	assert.Contains(t, out, "unmatched 1 students, 0 tutors")
	assert.Contains(t, out, "excluded  tutor t-9: no availability")
	assert.True(t, f.closed)
}

func TestGenerateKeepsSummaryOnPersistenceFailure(t *testing.T) {
	f := newFixture()
	f.generator.summary = &dto.GenerationSummary{
		RunID:       "run-2",
		State:       models.GenerationStateFailed,
		FailedPairs: []dto.FailedPair{{TutorID: "t-1", StudentID: "s-1", Reason: "connection reset"}},
	}
	f.generator.err = appErrors.Clone(appErrors.ErrMatchPersistence, "1 match could not be saved")

	out, err := f.run(t, "", "generate", "--json")
	require.Error(t, err)
	assert.Contains(t, out, `"run_id": "run-2"`)
	assert.Contains(t, out, `"reason": "connection reset"`)
	assert.Equal(t, "1 match could not be saved", exitMessage(err))
}

func TestMatchesListsPage(t *testing.T) {
	f := newFixture()
	f.lister.views = []dto.MatchView{{TutorName: "Ada", StudentName: "Sam", Instrument: "Piano", Day: "Monday", Start: "15:00", End: "16:30", Score: 2}}

	out, err := f.run(t, "", "matches", "--tutor", "t-1", "--page-size", "10")
	require.NoError(t, err)
	assert.Equal(t, dto.MatchQuery{TutorID: "t-1", Page: 1, PageSize: 10}, f.lister.query)
	assert.Contains(t, out, "Piano")
	assert.Contains(t, out, "15:00-16:30")
	assert.Contains(t, out, "page 1, 1 of 1 matches")
}

func TestMatchesExportWritesFile(t *testing.T) {
	f := newFixture()
	path := filepath.Join(t.TempDir(), "out.csv")

	out, err := f.run(t, "", "matches", "--export", "csv", "-o", path)
	require.NoError(t, err)
	assert.Equal(t, "csv", f.exporter.format)
	assert.Contains(t, out, "wrote 3 matches to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Tutor\n", string(data))
}

func TestMatchesExportToStdout(t *testing.T) {
	f := newFixture()

	out, err := f.run(t, "", "matches", "--export", "pdf", "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, "pdf", f.exporter.format)
	assert.Equal(t, "Tutor\n", out)
}

func TestResetConfirmation(t *testing.T) {
	tests := []struct {
		name   string
		stdin  string
		args   []string
		answer string
		output string
	}{
		{name: "flag", args: []string{"reset", "--confirm", "Yes"}, answer: "Yes", output: "deleted 2 matches, 3 students, 1 tutors"},
		{name: "prompt", stdin: "Yes\n", args: []string{"reset"}, answer: "Yes", output: "deleted 2 matches"},
		{name: "prompt declined", stdin: "yes\n", args: []string{"reset"}, answer: "yes", output: "reset cancelled"},
		{name: "empty input", args: []string{"reset"}, answer: "", output: "reset cancelled"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			out, err := f.run(t, tc.stdin, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.answer, f.admin.confirmation)
			assert.Contains(t, out, tc.output)
		})
	}
}

func TestResetBusy(t *testing.T) {
	f := newFixture()
	f.admin.resetErr = appErrors.ErrGenerationInProgress

	_, err := f.run(t, "", "reset", "--confirm", "Yes")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrGenerationInProgress.Code, appErrors.FromError(err).Code)
}

func TestImportReadsYAMLPool(t *testing.T) {
	f := newFixture()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	pool := `tutors:
  - full_name: Ada Tutor
    email: ada@example.com
    max_students: 2
    instruments:
      - value: Piano
    availability:
      - day: Monday
        start: "15:00"
        end: "17:00"
parents:
  - parent_name: Pat
    parent_email: pat@example.com
    student_name: Sam
    instruments:
      - value: Other
        other: Ukulele
    availability:
      - day: Monday
        start: "16:00"
        end: "18:00"
`
	require.NoError(t, os.WriteFile(path, []byte(pool), 0o600))

	out, err := f.run(t, "", "import", path)
	require.NoError(t, err)
	require.Len(t, f.importer.pool.Tutors, 1)
	require.Len(t, f.importer.pool.Parents, 1)
	assert.Equal(t, 2, *f.importer.pool.Tutors[0].MaxStudents)
	assert.Equal(t, "Ukulele", f.importer.pool.Parents[0].Instruments[0].Other)
	assert.Contains(t, out, "imported 1 tutors, 1 students")
	assert.Contains(t, out, "rejected parents[1] parent_email: duplicate")
}

func TestImportRejectsUnknownFields(t *testing.T) {
	f := newFixture()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mentors: []\n"), 0o600))

	_, err := f.run(t, "", "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestImportEmptyFile(t *testing.T) {
	f := newFixture()
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	out, err := f.run(t, "", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 tutors, 0 students")
}

func TestPasswd(t *testing.T) {
	original := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = original })

	t.Run("matching", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return []byte("s3cret!"), nil }
		f := newFixture()
		out, err := f.run(t, "", "passwd")
		require.NoError(t, err)
		assert.Equal(t, "s3cret!", f.admin.password)
		assert.Contains(t, out, "password updated")
	})

	t.Run("mismatch", func(t *testing.T) {
		answers := [][]byte{[]byte("first1"), []byte("second")}
		readPasswordFunc = func(int) ([]byte, error) {
			next := answers[0]
			answers = answers[1:]
			return next, nil
		}
		f := newFixture()
		_, err := f.run(t, "", "passwd")
		require.EqualError(t, err, "passwords do not match")
		assert.Empty(t, f.admin.password)
	})

	t.Run("read failure", func(t *testing.T) {
		readPasswordFunc = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
		f := newFixture()
		_, err := f.run(t, "", "passwd")
		require.EqualError(t, err, "not a terminal")
	})
}

func TestMigrate(t *testing.T) {
	f := newFixture()
	out, err := f.run(t, "", "migrate")
	require.NoError(t, err)
	assert.True(t, f.migrated)
	assert.Contains(t, out, "schema up to date")
}

func TestOpenFailureStopsCommand(t *testing.T) {
	root := newRootCmd(func(context.Context, bool) (*commandLine, func() error, error) {
		return nil, nil, errors.New("dial tcp: refused")
	})
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"generate"})
	require.EqualError(t, root.Execute(), "dial tcp: refused")
}
