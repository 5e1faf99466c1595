package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/tmc-tutoring/match-api/internal/dto"
	"github.com/tmc-tutoring/match-api/internal/forms"
	"github.com/tmc-tutoring/match-api/internal/matching"
	"github.com/tmc-tutoring/match-api/internal/models"
	appErrors "github.com/tmc-tutoring/match-api/pkg/errors"
)

type formGate interface {
	FormOpen(ctx context.Context) (bool, error)
}

type tutorStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, tutor *models.Tutor) error
}

type studentStore interface {
	Create(ctx context.Context, student *models.Student) error
}

// ParticipantService handles tutor and parent intake.
type ParticipantService struct {
	gate      formGate
	tutors    tutorStore
	students  studentStore
	forms     *forms.Registry
	validator *validator.Validate
	logger    *zap.Logger
}

// NewParticipantService constructs a ParticipantService.
func NewParticipantService(gate formGate, tutors tutorStore, students studentStore, validate *validator.Validate, logger *zap.Logger) *ParticipantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ParticipantService{
		gate:      gate,
		tutors:    tutors,
		students:  students,
		forms:     forms.DefaultRegistry(),
		validator: validate,
		logger:    logger,
	}
}

// Instruments returns the selectable instrument catalog.
func (s *ParticipantService) Instruments() dto.InstrumentCatalogResponse {
	instruments := make([]string, len(matching.Catalog))
	copy(instruments, matching.Catalog)
	return dto.InstrumentCatalogResponse{Instruments: instruments, Other: matching.OtherInstrument}
}

// ApplyFormCommand applies one control interaction to a form held by the client.
func (s *ParticipantService) ApplyFormCommand(req dto.FormCommandRequest) (*dto.FormCommandResponse, error) {
	state := req.State
	if state == nil {
		state = forms.NewState()
	}
	if err := s.forms.Dispatch(state, req.Command); err != nil {
		if errors.Is(err, forms.ErrUnknownCommand) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "unknown form control")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return &dto.FormCommandResponse{Form: state.View()}, nil
}

// RegisterTutor stores a tutor submission. Intake must be open.
func (s *ParticipantService) RegisterTutor(ctx context.Context, req dto.RegisterTutorRequest) (*dto.RegistrationResponse, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return s.createTutor(ctx, req)
}

// RegisterParent stores a parent submission for one student. Intake must be open.
func (s *ParticipantService) RegisterParent(ctx context.Context, req dto.RegisterParentRequest) (*dto.RegistrationResponse, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return s.createStudent(ctx, req)
}

// ImportPool bulk-loads participants regardless of the form state. Rejected
// entries are reported and do not stop the import.
func (s *ParticipantService) ImportPool(ctx context.Context, pool dto.ParticipantPool) (*dto.ImportResult, error) {
	result := &dto.ImportResult{}
	for i, tutor := range pool.Tutors {
		if _, err := s.createTutor(ctx, tutor); err != nil {
			if isInfraError(err) {
				return result, err
			}
			result.Rejected = append(result.Rejected, fmt.Sprintf("tutors[%d] %s: %s", i, tutor.Email, appErrors.FromError(err).Message))
			continue
		}
		result.TutorsCreated++
	}
	for i, parent := range pool.Parents {
		if _, err := s.createStudent(ctx, parent); err != nil {
			if isInfraError(err) {
				return result, err
			}
			result.Rejected = append(result.Rejected, fmt.Sprintf("parents[%d] %s: %s", i, parent.StudentName, appErrors.FromError(err).Message))
			continue
		}
		result.StudentsCreated++
	}
	s.logger.Info("participant pool imported",
		zap.Int("tutors", result.TutorsCreated),
		zap.Int("students", result.StudentsCreated),
		zap.Int("rejected", len(result.Rejected)))
	return result, nil
}

func (s *ParticipantService) createTutor(ctx context.Context, req dto.RegisterTutorRequest) (*dto.RegistrationResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tutor submission")
	}
	instruments, availability, err := s.encodeEntries(matching.RoleTutor, req.Instruments, req.Availability)
	if err != nil {
		return nil, err
	}

	exists, err := s.tutors.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check tutor email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a tutor with this email is already registered")
	}

	tutor := &models.Tutor{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		MaxStudents:  req.MaxStudents,
		Instruments:  instruments,
		Availability: availability,
	}
	if err := s.tutors.Create(ctx, tutor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save tutor")
	}
	s.logger.Info("tutor registered", zap.String("tutor_id", tutor.ID))
	return &dto.RegistrationResponse{ID: tutor.ID, Role: string(matching.RoleTutor)}, nil
}

func (s *ParticipantService) createStudent(ctx context.Context, req dto.RegisterParentRequest) (*dto.RegistrationResponse, error) {
	req.ParentEmail = strings.ToLower(strings.TrimSpace(req.ParentEmail))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent submission")
	}
	instruments, availability, err := s.encodeEntries(matching.RoleStudent, req.Instruments, req.Availability)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentName:  strings.TrimSpace(req.StudentName),
		ParentName:   strings.TrimSpace(req.ParentName),
		ParentEmail:  req.ParentEmail,
		Instruments:  instruments,
		Availability: availability,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save student")
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID))
	return &dto.RegistrationResponse{ID: student.ID, Role: string(matching.RoleStudent)}, nil
}

// encodeEntries normalizes the submitted rows to reject anything the engine
// would exclude, then stores the rows as submitted.
func (s *ParticipantService) encodeEntries(role matching.Role, instruments []dto.InstrumentEntry, availability []dto.AvailabilityEntry) (types.JSONText, types.JSONText, error) {
	raw := matching.RawParticipant{
		Role:         role,
		Instruments:  dto.RawInstruments(instruments),
		Availability: dto.RawWindows(availability),
	}
	participant, err := matching.Normalize(raw)
	if err != nil {
		var inputErr *matching.InputDataError
		if errors.As(err, &inputErr) {
			message := fmt.Sprintf("%s[%d]: %s", inputErr.Field, inputErr.Index, inputErr.Reason)
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission")
	}
	if !participant.Eligible {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "at least one instrument and one time slot are required")
	}

	instrumentsJSON, err := json.Marshal(raw.Instruments)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode instruments")
	}
	availabilityJSON, err := json.Marshal(raw.Availability)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode availability")
	}
	return types.JSONText(instrumentsJSON), types.JSONText(availabilityJSON), nil
}

func (s *ParticipantService) ensureOpen(ctx context.Context) error {
	open, err := s.gate.FormOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		return appErrors.ErrFormClosed
	}
	return nil
}

func isInfraError(err error) bool {
	return appErrors.FromError(err).Status >= 500
}
