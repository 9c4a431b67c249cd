package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"worksheet-backend/internal/catalog"
	"worksheet-backend/internal/export"
	"worksheet-backend/internal/models"
	"worksheet-backend/internal/services"
	"worksheet-backend/internal/session"
)

var (
	ErrGenerationInProgress = errors.New("a worksheet is already being generated")
	ErrInvalidView          = errors.New("operation not available in the current view")
	ErrUnknownFormat        = errors.New("unknown export format")
)

type Limiter interface {
	CheckAndConsume(ctx context.Context, clientID string) bool
	Usage(ctx context.Context, clientID string) (used, limit int)
}

type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.Worksheet, error)
}

type HistoryRecorder interface {
	Record(ctx context.Context, event *models.GenerationEvent) error
}

type StatusPublisher interface {
	Publish(ctx context.Context, clientID string, msg models.WSMessage) error
}

type Options struct {
	QuestionCounts       []int
	DefaultQuestionCount int
	Exporters            *export.Registry
	History              HistoryRecorder // optional
	Status               StatusPublisher // optional
}

// Controller drives the landing → setup → worksheet flow for every session.
type Controller struct {
	catalog      *catalog.Catalog
	limiter      Limiter
	generator    Generator
	sessions     *session.Store
	counts       []int
	defaultCount int
	exporters    *export.Registry
	history      HistoryRecorder
	status       StatusPublisher
}

func NewController(cat *catalog.Catalog, limiter Limiter, generator Generator, sessions *session.Store, opts Options) *Controller {
	counts := opts.QuestionCounts
	if len(counts) == 0 {
		counts = []int{5, 10, 15, 20}
	}
	def := opts.DefaultQuestionCount
	if !containsInt(counts, def) {
		def = counts[0]
	}
	exporters := opts.Exporters
	if exporters == nil {
		exporters = export.DefaultRegistry()
	}
	return &Controller{
		catalog:      cat,
		limiter:      limiter,
		generator:    generator,
		sessions:     sessions,
		counts:       counts,
		defaultCount: def,
		exporters:    exporters,
		history:      opts.History,
		status:       opts.Status,
	}
}

func (c *Controller) QuestionCounts() []int { return c.counts }

func (c *Controller) DefaultQuestionCount() int { return c.defaultCount }

func (c *Controller) Catalog() *catalog.Catalog { return c.catalog }

func (c *Controller) Formats() []string { return c.exporters.Formats() }

func (c *Controller) Usage(ctx context.Context, clientID string) models.UsageView {
	return models.NewUsageView(c.limiter.Usage(ctx, clientID))
}

func (c *Controller) defaultSelection() session.Selection {
	return session.Selection{Difficulty: models.DifficultyEasy, QuestionCount: c.defaultCount}
}

// Open starts a new session on the landing view.
func (c *Controller) Open(clientID string) session.Snapshot {
	sess := session.New(clientID, c.defaultSelection())
	c.sessions.Add(sess)
	return sess.Snapshot()
}

// update runs fn with the session locked and returns the resulting snapshot.
func (c *Controller) update(clientID string, id uuid.UUID, fn func(*session.Session) error) (session.Snapshot, error) {
	sess, err := c.lookup(clientID, id)
	if err != nil {
		return session.Snapshot{}, err
	}
	sess.Lock()
	defer sess.Unlock()
	if fn != nil {
		if err := fn(sess); err != nil {
			return session.Snapshot{}, err
		}
	}
	return sess.Snapshot(), nil
}

func (c *Controller) lookup(clientID string, id uuid.UUID) (*session.Session, error) {
	sess, err := c.sessions.Get(id, clientID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, &services.NotFoundError{Message: "Session not found"}
	case errors.Is(err, session.ErrForbidden):
		return nil, &services.ForbiddenError{Message: "Session belongs to another client"}
	case err != nil:
		return nil, err
	}
	return sess, nil
}

func (c *Controller) Snapshot(clientID string, id uuid.UUID) (session.Snapshot, error) {
	return c.update(clientID, id, nil)
}

// Begin moves from landing to setup.
func (c *Controller) Begin(clientID string, id uuid.UUID) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		if s.View != session.ViewLanding {
			return ErrInvalidView
		}
		s.View = session.ViewSetup
		return nil
	})
}

// SelectionUpdate carries the fields a client changed; nil means unchanged.
type SelectionUpdate struct {
	Grade         *string `json:"grade"`
	Subject       *string `json:"subject"`
	Topic         *string `json:"topic"`
	Difficulty    *string `json:"difficulty"`
	QuestionCount *int    `json:"question_count"`
}

// Select applies a selection change. A new grade clears subject and topic, a
// new subject clears topic. Values must exist in the catalog.
func (c *Controller) Select(clientID string, id uuid.UUID, upd SelectionUpdate) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		if s.View == session.ViewLanding {
			return ErrInvalidView
		}
		next, err := c.applySelection(s.Selection, upd)
		if err != nil {
			return err
		}
		s.Selection = next
		return nil
	})
}

func (c *Controller) applySelection(sel session.Selection, upd SelectionUpdate) (session.Selection, error) {
	fields := make(map[string]string)

	if upd.Grade != nil {
		grade := strings.TrimSpace(*upd.Grade)
		if grade != "" && !c.catalog.HasGrade(grade) {
			fields["grade"] = "is not in the catalog"
		} else if grade != sel.Grade {
			sel.Grade = grade
			sel.Subject = ""
			sel.Topic = ""
		}
	}
	if upd.Subject != nil {
		subject := strings.TrimSpace(*upd.Subject)
		switch {
		case subject == "":
			sel.Subject = ""
			sel.Topic = ""
		case sel.Grade == "":
			fields["subject"] = "requires a grade"
		case !c.catalog.HasSubject(sel.Grade, subject):
			fields["subject"] = "is not offered for " + sel.Grade
		case subject != sel.Subject:
			sel.Subject = subject
			sel.Topic = ""
		}
	}
	if upd.Topic != nil {
		topic := strings.TrimSpace(*upd.Topic)
		switch {
		case topic == "":
			sel.Topic = ""
		case sel.Grade == "":
			fields["topic"] = "requires a grade"
		case !c.catalog.HasTopic(sel.Grade, c.subjectFor(sel), topic):
			fields["topic"] = "is not in the catalog for this selection"
		default:
			sel.Topic = topic
		}
	}
	if upd.Difficulty != nil {
		d, err := models.ParseDifficulty(*upd.Difficulty)
		if err != nil {
			fields["difficulty"] = "must be one of easy, medium, hard"
		} else {
			sel.Difficulty = d
		}
	}
	if upd.QuestionCount != nil {
		if !containsInt(c.counts, *upd.QuestionCount) {
			fields["question_count"] = fmt.Sprintf("must be one of %s", joinInts(c.counts))
		} else {
			sel.QuestionCount = *upd.QuestionCount
		}
	}

	if len(fields) > 0 {
		return sel, &services.ValidationError{Fields: fields}
	}
	return sel, nil
}

// subjectFor is the subject used for catalog lookups and prompts. Single
// subject deployments leave it empty.
func (c *Controller) subjectFor(sel session.Selection) string {
	if c.catalog.SingleSubject() {
		return ""
	}
	return sel.Subject
}

func (c *Controller) request(sel session.Selection) (models.GenerationRequest, error) {
	fields := make(map[string]string)
	if sel.Grade == "" {
		fields["grade"] = "is required"
	}
	if !c.catalog.SingleSubject() && sel.Subject == "" {
		fields["subject"] = "is required"
	}
	if sel.Topic == "" {
		fields["topic"] = "is required"
	}
	if len(fields) > 0 {
		return models.GenerationRequest{}, &services.ValidationError{Fields: fields}
	}
	return models.GenerationRequest{
		Grade:         sel.Grade,
		Subject:       c.subjectFor(sel),
		Topic:         sel.Topic,
		Difficulty:    sel.Difficulty,
		QuestionCount: sel.QuestionCount,
	}, nil
}

// Result is the outcome of a generation attempt. Running out of quota is a
// normal outcome, not an error.
type Result struct {
	QuotaExceeded bool             `json:"quota_exceeded"`
	Usage         models.UsageView `json:"usage"`
	Session       session.Snapshot `json:"session"`
}

// Generate consumes one unit of quota and asks the provider for a worksheet.
// On failure the previous worksheet and view stay as they were and the error
// is kept on the session as a dismissable banner.
func (c *Controller) Generate(ctx context.Context, clientID string, id uuid.UUID) (*Result, error) {
	sess, err := c.lookup(clientID, id)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	if sess.View == session.ViewLanding {
		sess.Unlock()
		return nil, ErrInvalidView
	}
	if sess.Generating {
		sess.Unlock()
		return nil, ErrGenerationInProgress
	}
	req, err := c.request(sess.Selection)
	if err != nil {
		sess.Unlock()
		return nil, err
	}

	if !c.limiter.CheckAndConsume(ctx, clientID) {
		snap := sess.Snapshot()
		sess.Unlock()
		usage := c.Usage(ctx, clientID)
		c.record(ctx, clientID, sess.ID, req, models.OutcomeQuotaExceeded, nil, nil)
		c.publish(ctx, clientID, models.WSQuotaExceeded, models.GenerationStatus{
			SessionID: sess.ID, Grade: req.Grade, Topic: req.Topic, Usage: &usage,
		})
		return &Result{QuotaExceeded: true, Usage: usage, Session: snap}, nil
	}

	sess.Generating = true
	sess.LastError = nil
	sess.Unlock()

	// Clears the flag if the generator panics before the result is stored.
	released := false
	defer func() {
		if !released {
			sess.Lock()
			sess.Generating = false
			sess.Unlock()
		}
	}()

	c.publish(ctx, clientID, models.WSGenerationStarted, models.GenerationStatus{
		SessionID: sess.ID, Grade: req.Grade, Topic: req.Topic, Questions: req.QuestionCount,
	})

	ws, genErr := c.generator.Generate(ctx, req)
	usage := c.Usage(ctx, clientID)

	sess.Lock()
	sess.Generating = false
	released = true
	if genErr != nil {
		code, message := describeFailure(genErr)
		sess.LastError = &session.Banner{Code: code, Message: message}
	} else {
		sess.StartNew(ws)
		sess.View = session.ViewWorksheet
	}
	snap := sess.Snapshot()
	sess.Unlock()

	if genErr != nil {
		code, _ := describeFailure(genErr)
		c.record(ctx, clientID, sess.ID, req, outcomeFor(genErr), nil, genErr)
		c.publish(ctx, clientID, models.WSGenerationFailed, models.GenerationStatus{
			SessionID: sess.ID, Grade: req.Grade, Topic: req.Topic, ErrorCode: code, Usage: &usage,
		})
		return nil, genErr
	}

	c.record(ctx, clientID, sess.ID, req, models.OutcomeSuccess, ws, nil)
	c.publish(ctx, clientID, models.WSGenerationCompleted, models.GenerationStatus{
		SessionID: sess.ID, Grade: ws.Grade, Topic: ws.Topic, Questions: len(ws.Questions), Usage: &usage,
	})
	return &Result{Usage: usage, Session: snap}, nil
}

// describeFailure maps a generation error to the banner shown to the user.
func describeFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, services.ErrInvalidResponseFormat):
		return "INVALID_RESPONSE_FORMAT", "The worksheet came back in an unexpected format. Please try again."
	case errors.Is(err, services.ErrGenerationUnavailable):
		return "GENERATION_UNAVAILABLE", "Failed to generate worksheet. Please try again."
	default:
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return "VALIDATION_ERROR", "Please complete your selection."
		}
		return "GENERATION_UNAVAILABLE", "Failed to generate worksheet. Please try again."
	}
}

func outcomeFor(err error) models.GenerationOutcome {
	if errors.Is(err, services.ErrInvalidResponseFormat) {
		return models.OutcomeInvalidResponse
	}
	return models.OutcomeGenerationUnavailable
}

func (c *Controller) record(ctx context.Context, clientID string, sessionID uuid.UUID, req models.GenerationRequest,
	outcome models.GenerationOutcome, ws *models.Worksheet, genErr error) {
	if c.history == nil {
		return
	}
	event := &models.GenerationEvent{
		ID:            uuid.New(),
		ClientID:      clientID,
		SessionID:     sessionID,
		Grade:         req.Grade,
		Subject:       req.Subject,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
		Outcome:       outcome,
		CreatedAt:     time.Now(),
	}
	if genErr != nil {
		msg := genErr.Error()
		event.ErrorMessage = &msg
	}
	if ws != nil {
		event.ReturnedCount = len(ws.Questions)
		if b, err := json.Marshal(ws); err == nil {
			event.WorksheetJSON = b
		}
	}
	// History must not turn a finished generation into a failure.
	if err := c.history.Record(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("flow: failed to record generation event: %v", err)
	}
}

func (c *Controller) publish(ctx context.Context, clientID, msgType string, status models.GenerationStatus) {
	if c.status == nil {
		return
	}
	if err := c.status.Publish(context.WithoutCancel(ctx), clientID, models.WSMessage{Type: msgType, Payload: status}); err != nil {
		log.Printf("flow: failed to publish %s: %v", msgType, err)
	}
}

func (c *Controller) Answer(clientID string, id uuid.UUID, questionID int, value string) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		return sessionErr(s.SetAnswer(questionID, value))
	})
}

func (c *Controller) Grade(clientID string, id uuid.UUID) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		return sessionErr(s.Grade())
	})
}

func (c *Controller) ToggleSolution(clientID string, id uuid.UUID, questionID int) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		_, err := s.ToggleSolution(questionID)
		return sessionErr(err)
	})
}

func (c *Controller) DismissError(clientID string, id uuid.UUID) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		s.LastError = nil
		return nil
	})
}

// Reset returns to setup with an empty selection and no worksheet.
func (c *Controller) Reset(clientID string, id uuid.UUID) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		if s.Generating {
			return ErrGenerationInProgress
		}
		s.Clear()
		s.Selection = c.defaultSelection()
		s.LastError = nil
		s.View = session.ViewSetup
		return nil
	})
}

// Home returns to landing and drops the worksheet. The selection is kept.
func (c *Controller) Home(clientID string, id uuid.UUID) (session.Snapshot, error) {
	return c.update(clientID, id, func(s *session.Session) error {
		if s.Generating {
			return ErrGenerationInProgress
		}
		s.Clear()
		s.LastError = nil
		s.View = session.ViewLanding
		return nil
	})
}

// Export renders the current worksheet. It returns the exporter used so the
// caller can set content type and file name.
func (c *Controller) Export(clientID string, id uuid.UUID, format string, opts export.Options, w io.Writer) (export.Exporter, *models.Worksheet, error) {
	exp, ok := c.exporters.Get(format)
	if !ok {
		return nil, nil, ErrUnknownFormat
	}
	var ws *models.Worksheet
	if _, err := c.update(clientID, id, func(s *session.Session) error {
		if s.Worksheet == nil {
			return &services.NotFoundError{Message: "No worksheet to export"}
		}
		ws = s.Worksheet
		return nil
	}); err != nil {
		return nil, nil, err
	}
	// Worksheets are immutable, so rendering happens outside the session lock.
	if err := exp.Export(w, ws, opts); err != nil {
		return nil, nil, err
	}
	return exp, ws, nil
}

func sessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNoWorksheet):
		return &services.NotFoundError{Message: "No worksheet in this session"}
	case errors.Is(err, session.ErrUnknownQuestion):
		return &services.NotFoundError{Message: "Question not found"}
	}
	return err
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func joinInts(list []int) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
