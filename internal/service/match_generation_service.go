package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/matching"
	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

const lastSummaryCacheKey = "match-generation:last-summary"

type tutorLister interface {
	ListAll(ctx context.Context) ([]models.Tutor, error)
}

type studentLister interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type matchStore interface {
	ListPairs(ctx context.Context) ([]models.Match, error)
	PersistBatch(ctx context.Context, matches []models.Match) (*models.MatchWriteResult, error)
}

type runLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) error
	Release(ctx context.Context, key, token string) error
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// PersistenceError lists the chosen pairs whose match rows could not be written.
type PersistenceError struct {
	RunID     string
	Attempted int
	Failed    []dto.FailedPair
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("run %s: %d of %d matches could not be saved", e.RunID, len(e.Failed), e.Attempted)
}

// MatchGenerationConfig governs generator behaviour.
type MatchGenerationConfig struct {
	DefaultTutorCapacity int
	LockKey              string
	LockTTL              time.Duration
	SummaryTTL           time.Duration
}

// MatchGenerationService runs the match pipeline: load participants, build
// candidates, select pairings, persist matches. Matches kept from earlier runs
// count against tutor capacity and keep their students assigned. At most one
// run (or reset) executes at a time.
type MatchGenerationService struct {
	tutors   tutorLister
	students studentLister
	matches  matchStore
	locker   runLocker
	cache    summaryCache
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      MatchGenerationConfig
	now      func() time.Time

	runMu   sync.Mutex
	running atomic.Bool

	mu    sync.RWMutex
	state models.GenerationState
	last  *dto.GenerationSummary
}

// NewMatchGenerationService wires generator dependencies. locker, cache and
// metrics are optional.
func NewMatchGenerationService(
	tutors tutorLister,
	students studentLister,
	matches matchStore,
	locker runLocker,
	cache summaryCache,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg MatchGenerationConfig,
) *MatchGenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "match-generation:lock"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if cfg.DefaultTutorCapacity < 0 {
		cfg.DefaultTutorCapacity = 0
	}
	return &MatchGenerationService{
		tutors:   tutors,
		students: students,
		matches:  matches,
		locker:   locker,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		state:    models.GenerationStateIdle,
	}
}

// RunExclusive executes fn while holding the generation guard. It returns
// ErrGenerationInProgress immediately, without calling fn, when a run is
// already active in this process or, through the distributed lock, in another
// one. The lock is renewed while fn runs.
func (s *MatchGenerationService) RunExclusive(ctx context.Context, fn func(context.Context) error) error {
	if !s.runMu.TryLock() {
		return appErrors.ErrGenerationInProgress
	}
	defer s.runMu.Unlock()

	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
		}
		if !ok {
			return appErrors.ErrGenerationInProgress
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), s.cfg.LockKey, token); err != nil {
				s.logger.Warn("failed to release generation lock", zap.Error(err))
			}
		}()

		stop := make(chan struct{})
		renewed := make(chan struct{})
		go s.renewLock(ctx, token, stop, renewed)
		defer func() {
			close(stop)
			<-renewed
		}()
	}

	s.running.Store(true)
	defer s.running.Store(false)
	return fn(ctx)
}

// renewLock extends the distributed lock every third of its TTL until stop is
// closed, so a run outlasting the TTL keeps exclusive ownership.
func (s *MatchGenerationService) renewLock(ctx context.Context, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := s.cfg.LockTTL / 3
	if interval <= 0 {
		interval = s.cfg.LockTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.locker.Extend(context.WithoutCancel(ctx), s.cfg.LockKey, token, s.cfg.LockTTL); err != nil {
				s.logger.Warn("failed to extend generation lock", zap.Error(err))
			}
		}
	}
}

// Generate runs the pipeline once. The summary is returned whenever the run
// got past the lock, including when it ends Failed; the error then describes
// the failure. A partially persisted batch yields ErrMatchPersistence wrapping
// a *PersistenceError.
func (s *MatchGenerationService) Generate(ctx context.Context) (*dto.GenerationSummary, error) {
	var summary *dto.GenerationSummary
	err := s.RunExclusive(ctx, func(ctx context.Context) error {
		var runErr error
		summary, runErr = s.generate(ctx)
		return runErr
	})
	if errors.Is(err, appErrors.ErrGenerationInProgress) {
		s.metrics.RecordGenerationRejected()
		s.logger.Info("match generation rejected, run already in progress")
	}
	return summary, err
}

func (s *MatchGenerationService) generate(ctx context.Context) (*dto.GenerationSummary, error) {
	summary := &dto.GenerationSummary{
		RunID:                uuid.NewString(),
		StartedAt:            s.now(),
		UnmatchedStudents:    []string{},
		UnmatchedTutors:      []string{},
		ExcludedParticipants: []dto.ExcludedParticipant{},
	}
	logger := s.logger.With(zap.String("run_id", summary.RunID))
	logger.Info("match generation started")

	s.setState(models.GenerationStateBuilding)
	phaseStart := time.Now()

	tutorRows, err := s.tutors.ListAll(ctx)
	if err != nil {
		s.finish(ctx, logger, summary, models.GenerationStateFailed)
		return summary, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutors")
	}
	studentRows, err := s.students.ListAll(ctx)
	if err != nil {
		s.finish(ctx, logger, summary, models.GenerationStateFailed)
		return summary, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	prior, err := s.matches.ListPairs(ctx)
	if err != nil {
		s.finish(ctx, logger, summary, models.GenerationStateFailed)
		return summary, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing matches")
	}

	rawTutors, tutorDecodeErrs := decodeTutors(tutorRows)
	rawStudents, studentDecodeErrs := decodeStudents(studentRows)
	tutors, tutorExcluded := matching.NormalizeAll(rawTutors)
	students, studentExcluded := matching.NormalizeAll(rawStudents)
	tutorExcluded = append(tutorDecodeErrs, tutorExcluded...)
	studentExcluded = append(studentDecodeErrs, studentExcluded...)
	s.recordExclusions(logger, summary, tutorExcluded, studentExcluded)

	pairs := matching.BuildCandidates(tutors, students)
	s.metrics.ObserveGenerationPhase(models.GenerationStateBuilding, time.Since(phaseStart))
	logger.Debug("candidate pairs built",
		zap.Int("tutors", len(tutors)),
		zap.Int("students", len(students)),
		zap.Int("pairs", len(pairs)),
		zap.Int("existing_matches", len(prior)))

	s.setState(models.GenerationStateSelecting)
	phaseStart = time.Now()
	opts := matching.Options{
		DefaultCapacity:  s.cfg.DefaultTutorCapacity,
		AssignedStudents: make(map[string]bool, len(prior)),
		TutorLoad:        make(map[string]int),
	}
	for _, match := range prior {
		opts.AssignedStudents[match.StudentID] = true
		opts.TutorLoad[match.TutorID]++
	}
	selection := matching.Select(pairs, tutors, students, opts)
	s.metrics.ObserveGenerationPhase(models.GenerationStateSelecting, time.Since(phaseStart))

	s.setState(models.GenerationStatePersisting)
	phaseStart = time.Now()
	batch := make([]models.Match, 0, len(selection.Assignments))
	for _, assignment := range selection.Assignments {
		batch = append(batch, models.Match{
			RunID:       summary.RunID,
			TutorID:     assignment.TutorID,
			StudentID:   assignment.StudentID,
			Instrument:  assignment.Instrument.Name,
			DayOfWeek:   assignment.Window.Day,
			StartMinute: assignment.Window.Start,
			EndMinute:   assignment.Window.End,
			Score:       assignment.Score,
		})
	}

	result := &models.MatchWriteResult{}
	if len(batch) > 0 {
		result, err = s.matches.PersistBatch(ctx, batch)
	}
	s.metrics.ObserveGenerationPhase(models.GenerationStatePersisting, time.Since(phaseStart))
	if err != nil {
		result = &models.MatchWriteResult{}
		for _, match := range batch {
			result.Failed = append(result.Failed, models.MatchWriteFailure{Match: match, Err: err})
		}
	}

	summary.CreatedCount = len(result.Created)
	summary.ExistingCount = len(prior) + len(result.Existing)
	summary.MatchedCount = summary.CreatedCount + summary.ExistingCount
	summary.UnmatchedStudents, summary.UnmatchedTutors = unmatchedIDs(tutorRows, studentRows, prior, result)

	if len(result.Failed) > 0 {
		persistErr := &PersistenceError{RunID: summary.RunID, Attempted: len(batch)}
		for _, failure := range result.Failed {
			persistErr.Failed = append(persistErr.Failed, dto.FailedPair{
				TutorID:   failure.Match.TutorID,
				StudentID: failure.Match.StudentID,
				Reason:    failure.Err.Error(),
			})
		}
		summary.FailedPairs = persistErr.Failed
		logger.Error("match persistence failed", zap.Int("failed", len(persistErr.Failed)), zap.Int("attempted", len(batch)), zap.Error(err))
		s.finish(ctx, logger, summary, models.GenerationStateFailed)
		return summary, appErrors.Wrap(persistErr, appErrors.ErrMatchPersistence.Code, appErrors.ErrMatchPersistence.Status, appErrors.ErrMatchPersistence.Message)
	}

	s.finish(ctx, logger, summary, models.GenerationStateDone)
	return summary, nil
}

func (s *MatchGenerationService) recordExclusions(logger *zap.Logger, summary *dto.GenerationSummary, groups ...[]matching.Exclusion) {
	for _, group := range groups {
		for _, exclusion := range group {
			summary.ExcludedParticipants = append(summary.ExcludedParticipants, dto.ExcludedParticipant{
				ID:     exclusion.ID,
				Role:   string(exclusion.Role),
				Reason: exclusion.Reason,
			})
			var inputErr *matching.InputDataError
			if errors.As(exclusion.Err, &inputErr) {
				logger.Warn("excluding malformed participant",
					zap.String("participant_id", exclusion.ID),
					zap.String("role", string(exclusion.Role)),
					zap.Error(exclusion.Err))
				continue
			}
			logger.Debug("participant not eligible",
				zap.String("participant_id", exclusion.ID),
				zap.String("role", string(exclusion.Role)),
				zap.String("reason", exclusion.Reason))
		}
		if len(group) > 0 {
			s.metrics.RecordGenerationExcluded(string(group[0].Role), len(group))
		}
	}
	sort.Slice(summary.ExcludedParticipants, func(i, j int) bool {
		a, b := summary.ExcludedParticipants[i], summary.ExcludedParticipants[j]
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.ID < b.ID
	})
}

func (s *MatchGenerationService) finish(ctx context.Context, logger *zap.Logger, summary *dto.GenerationSummary, state models.GenerationState) {
	summary.State = state
	summary.FinishedAt = s.now()
	s.mu.Lock()
	s.state = state
	snapshot := *summary
	s.last = &snapshot
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, lastSummaryCacheKey, summary, s.cfg.SummaryTTL); err != nil {
			logger.Warn("failed to cache generation summary", zap.Error(err))
		}
	}
	s.metrics.RecordGenerationRun(state, summary.MatchedCount, len(summary.UnmatchedStudents), len(summary.UnmatchedTutors), len(summary.FailedPairs))
	logger.Info("match generation finished",
		zap.String("state", string(state)),
		zap.Int("matched", summary.MatchedCount),
		zap.Int("created", summary.CreatedCount),
		zap.Int("existing", summary.ExistingCount),
		zap.Int("unmatched_students", len(summary.UnmatchedStudents)),
		zap.Int("unmatched_tutors", len(summary.UnmatchedTutors)),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))
}

func (s *MatchGenerationService) setState(state models.GenerationState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Status reports the generator state and the last finished run.
func (s *MatchGenerationService) Status() dto.GenerationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := dto.GenerationStatus{State: s.state, Running: s.running.Load()}
	if s.last != nil {
		finished := s.last.FinishedAt
		status.LastRunID = s.last.RunID
		status.LastRunAt = &finished
	}
	return status
}

// LastSummary returns the summary of the most recent run, from memory or,
// after a restart, from the cache.
func (s *MatchGenerationService) LastSummary(ctx context.Context) (*dto.GenerationSummary, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last != nil {
		copied := *last
		return &copied, nil
	}

	if s.cache != nil {
		var cached dto.GenerationSummary
		hit, err := s.cache.Get(ctx, lastSummaryCacheKey, &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no match generation run has finished yet")
}

// ForgetLastRun clears the remembered summary and returns the generator to
// Idle. Called after a reset.
func (s *MatchGenerationService) ForgetLastRun(ctx context.Context) {
	s.mu.Lock()
	s.last = nil
	s.state = models.GenerationStateIdle
	s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, lastSummaryCacheKey); err != nil {
			s.logger.Warn("failed to invalidate generation summary", zap.Error(err))
		}
	}
}

func unmatchedIDs(tutors []models.Tutor, students []models.Student, prior []models.Match, result *models.MatchWriteResult) ([]string, []string) {
	matchedTutors := make(map[string]bool)
	matchedStudents := make(map[string]bool)
	for _, group := range [][]models.Match{prior, result.Created, result.Existing} {
		for _, match := range group {
			matchedTutors[match.TutorID] = true
			matchedStudents[match.StudentID] = true
		}
	}

	unmatchedStudents := []string{}
	for _, student := range students {
		if !matchedStudents[student.ID] {
			unmatchedStudents = append(unmatchedStudents, student.ID)
		}
	}
	unmatchedTutors := []string{}
	for _, tutor := range tutors {
		if !matchedTutors[tutor.ID] {
			unmatchedTutors = append(unmatchedTutors, tutor.ID)
		}
	}
	sort.Strings(unmatchedStudents)
	sort.Strings(unmatchedTutors)
	return unmatchedStudents, unmatchedTutors
}
