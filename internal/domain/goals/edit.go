package goals

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/smart-goals/internal/models"
	"github.com/adanyl0v/smart-goals/internal/store"
)

var (
	ErrAlreadyEditing = errors.New("goal is already being edited")
	ErrNotEditing     = errors.New("goal is not being edited")
	ErrEditing        = errors.New("goal is being edited")
	ErrUnknownField   = errors.New("unknown goal field")
)

type Mode int

const (
	ModeViewing Mode = iota
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeViewing:
		return "viewing"
	case ModeEditing:
		return "editing"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Writer is the part of the goal store an edit session writes through.
type Writer interface {
	Update(ctx context.Context, userID, id string, fields store.Fields) error
	Remove(ctx context.Context, userID, id string) error
}

// Confirmer gates deletion behind an explicit yes or no.
type Confirmer interface {
	Confirm(ctx context.Context, goal models.Goal) (bool, error)
}

type ConfirmFunc func(ctx context.Context, goal models.Goal) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, goal models.Goal) (bool, error) {
	return f(ctx, goal)
}

// Draft is the working copy of a goal while it is being edited. The
// deadline is kept as a date-only string, the way date inputs hold it.
type Draft struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Deadline    string        `json:"deadline"`
	Status      models.Status `json:"status"`
	Progress    int           `json:"progress"`
}

func draftOf(g models.Goal) Draft {
	d := Draft{
		Title:       g.Title,
		Description: g.Description,
		Status:      g.Status,
		Progress:    g.Progress,
	}
	if g.Deadline != nil {
		d.Deadline = models.FormatISODate(*g.Deadline)
	}
	return d
}

// Fields returns the full point update a save sends.
func (d Draft) Fields() store.Fields {
	return store.Fields{
		models.FieldTitle:       d.Title,
		models.FieldDescription: d.Description,
		models.FieldDeadline:    d.Deadline,
		models.FieldStatus:      d.Status.String(),
		models.FieldProgress:    d.Progress,
	}
}

// StatusUpdate is the point update of a status shortcut. Completing a
// goal forces its progress to 100.
func StatusUpdate(g models.Goal, status models.Status) store.Fields {
	return store.Fields{
		models.FieldStatus:   status.String(),
		models.FieldProgress: status.ProgressFor(g.Progress),
	}
}

// EditSession drives the edit workflow of a single goal.
//
// The session never touches the shared goal state: saved changes show up
// through the next live batch, which callers hand back with Refresh.
type EditSession struct {
	logger zerolog.Logger
	writer Writer

	mu      sync.Mutex
	goal    models.Goal
	mode    Mode
	draft   Draft
	pending int
}

func NewEditSession(logger zerolog.Logger, writer Writer, goal models.Goal) *EditSession {
	return &EditSession{
		logger: logger.With().Str("goal_id", goal.ID).Logger(),
		writer: writer,
		goal:   goal.Clone(),
	}
}

func (s *EditSession) Goal() models.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goal.Clone()
}

func (s *EditSession) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Draft returns the working copy while editing.
func (s *EditSession) Draft() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft, s.mode == ModeEditing
}

// Pending reports whether a write is in flight.
func (s *EditSession) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// Refresh adopts the reconciled goal delivered by the live subscription.
// A draft in progress is left alone.
func (s *EditSession) Refresh(goal models.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if goal.ID != s.goal.ID {
		return
	}
	s.goal = goal.Clone()
}

func (s *EditSession) EnterEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeEditing {
		return ErrAlreadyEditing
	}
	s.draft = draftOf(s.goal)
	s.mode = ModeEditing
	return nil
}

// UpdateField merges one field into the draft. Required fields are not
// checked here; callers validate input before it reaches the session.
func (s *EditSession) UpdateField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeEditing {
		return ErrNotEditing
	}

	switch name {
	case models.FieldTitle:
		s.draft.Title = value
	case models.FieldDescription:
		s.draft.Description = value
	case models.FieldDeadline:
		s.draft.Deadline = value
	case models.FieldStatus:
		status, err := models.ParseStatus(value)
		if err != nil {
			return err
		}
		s.draft.Status = status
	case models.FieldProgress:
		progress, err := models.ParseProgress(value)
		if err != nil {
			return err
		}
		s.draft.Progress = progress
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

// Save writes the whole draft. On failure the session stays in edit mode
// with the draft intact.
func (s *EditSession) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.mode != ModeEditing {
		s.mu.Unlock()
		return ErrNotEditing
	}
	fields := s.draft.Fields()
	goal := s.goal
	s.pending++
	s.mu.Unlock()

	err := s.writer.Update(ctx, goal.UserID, goal.ID, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--

	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to save goal")
		return fmt.Errorf("save goal: %w", err)
	}
	s.mode = ModeViewing
	s.draft = Draft{}
	s.logger.Info().Msg("saved goal")
	return nil
}

// Cancel discards the draft without writing anything.
func (s *EditSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeEditing {
		return ErrNotEditing
	}
	s.mode = ModeViewing
	s.draft = Draft{}
	return nil
}

// SetStatus moves the goal to status without entering edit mode.
func (s *EditSession) SetStatus(ctx context.Context, status models.Status) error {
	if !status.Valid() {
		return models.ErrInvalidStatus
	}

	s.mu.Lock()
	if s.mode != ModeViewing {
		s.mu.Unlock()
		return ErrEditing
	}
	goal := s.goal
	s.pending++
	s.mu.Unlock()

	err := s.writer.Update(ctx, goal.UserID, goal.ID, StatusUpdate(goal, status))

	s.mu.Lock()
	s.pending--
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("status", status.String()).
			Msg("failed to update goal status")
		return fmt.Errorf("update goal status: %w", err)
	}
	s.logger.Info().
		Str("status", status.String()).
		Msg("updated goal status")
	return nil
}

// Delete removes the goal once confirmer agrees. It reports whether the
// goal was removed; a declined confirmation is not an error.
func (s *EditSession) Delete(ctx context.Context, confirmer Confirmer) (bool, error) {
	s.mu.Lock()
	if s.mode != ModeViewing {
		s.mu.Unlock()
		return false, ErrEditing
	}
	goal := s.goal.Clone()
	s.mu.Unlock()

	ok, err := confirmer.Confirm(ctx, goal)
	if err != nil {
		return false, fmt.Errorf("confirm goal deletion: %w", err)
	}
	if !ok {
		s.logger.Debug().Msg("goal deletion declined")
		return false, nil
	}

	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	err = s.writer.Remove(ctx, goal.UserID, goal.ID)

	s.mu.Lock()
	s.pending--
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to delete goal")
		return false, fmt.Errorf("delete goal: %w", err)
	}
	s.logger.Info().Msg("deleted goal")
	return true, nil
}
