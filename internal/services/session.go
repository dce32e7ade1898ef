// Package services runs an experiment session: trials in sequence, each one driven
// frame by frame from a ticker, answered from the keyboard, scored and stored.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"attblink/internal/metrics"
	"attblink/internal/models"
	"attblink/internal/repository"
	"attblink/internal/timeutil"
	"attblink/internal/trial"
	"attblink/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrCancelled   = errors.New("session cancelled")
	ErrInputClosed = errors.New("keyboard input closed")
)

// Presenter shows the session to the participant. Calls come from the runner's
// goroutine only, in display order.
type Presenter interface {
	ShowFixation(practice bool)
	ShowFrame(frame trial.Frame)
	Clear()
	PromptResponse()
	ShowResponse(slot int, key rune)
	RejectKey(key rune)
	ShowFeedback(correct [2]bool)
	Finish()
}

// Options holds the session length, the pauses around each stream and the storage
// retry policy.
type Options struct {
	Trials         int
	PracticeTrials int
	Interval       time.Duration
	Fixation       time.Duration
	ResponseDelay  time.Duration // from the last frame to the response prompt
	FeedbackDelay  time.Duration // from the second digit to the feedback
	InterTrial     time.Duration // from the second digit to the next trial
	StoreAttempts  int
	StoreBackoff   time.Duration
}

const (
	defaultStoreAttempts = 3
	defaultStoreBackoff  = 200 * time.Millisecond
)

// Runner owns one session. It is not safe for concurrent use.
type Runner struct {
	log         *zap.Logger
	engine      *trial.Engine
	presenter   Presenter
	keys        <-chan rune
	clock       timeutil.Clock
	trials      repository.TrialSink
	sessions    repository.SessionSink
	participant models.Participant
	opts        Options

	records []models.TrialRecord
}

// NewRunner wires a session. sessions may be nil when no database is configured.
func NewRunner(
	log *zap.Logger,
	engine *trial.Engine,
	presenter Presenter,
	keys <-chan rune,
	clock timeutil.Clock,
	trials repository.TrialSink,
	sessions repository.SessionSink,
	participant models.Participant,
	opts Options,
) *Runner {
	if opts.StoreAttempts <= 0 {
		opts.StoreAttempts = defaultStoreAttempts
	}
	if opts.StoreBackoff <= 0 {
		opts.StoreBackoff = defaultStoreBackoff
	}
	return &Runner{
		log:         log,
		engine:      engine,
		presenter:   presenter,
		keys:        keys,
		clock:       clock,
		trials:      trials,
		sessions:    sessions,
		participant: participant,
		opts:        opts,
	}
}

// Run plays practice trials followed by the stored trials and returns the finished
// session. The session is saved at start and again on the way out, also when the run
// stops early.
func (r *Runner) Run(ctx context.Context) (session models.Session, err error) {
	if err := ctx.Err(); err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	session = models.NewSession(r.participant, r.opts.PracticeTrials, r.opts.Trials, r.clock.Now())
	log := r.log.With(zap.String("session", session.ID))
	if err := r.saveSession(ctx, session); err != nil {
		return session, err
	}
	log.Info("Session started",
		zap.String("participant", r.participant.Name),
		zap.Int("practice", r.opts.PracticeTrials),
		zap.Int("trials", r.opts.Trials),
	)

	defer func() {
		finished := r.clock.Now()
		session.FinishedAt = &finished
		session.CompletedTrials = len(r.records)
		if saveErr := r.saveSession(context.WithoutCancel(ctx), session); saveErr != nil && err == nil {
			err = saveErr
		}
		r.logSummary(log, session)
	}()

	total := r.opts.Trials + r.opts.PracticeTrials
	for count := 1; count <= total; count++ {
		if err := r.runTrial(ctx, log, session.ID, count); err != nil {
			return session, err
		}
	}

	r.presenter.Finish()
	return session, nil
}

// Records returns the trials stored so far in this session.
func (r *Runner) Records() []models.TrialRecord {
	return append([]models.TrialRecord(nil), r.records...)
}

func (r *Runner) runTrial(ctx context.Context, log *zap.Logger, sessionID string, count int) error {
	practice := count <= r.opts.PracticeTrials
	trialNo := count - r.opts.PracticeTrials
	log = log.With(zap.Int("trial", count), zap.Bool("practice", practice))

	plan, err := r.engine.Start()
	if err != nil {
		return fmt.Errorf("start trial %d: %w", count, err)
	}
	log.Debug("Trial planned",
		zap.Float64("shift", plan.Shift),
		zap.Int("t1", plan.T1),
		zap.Int("t2", plan.T2),
		zap.Int("frameT1", plan.Frames.FrameT1),
		zap.Int("frameT2", plan.Frames.FrameT2),
	)

	r.presenter.ShowFixation(practice)
	if err := r.wait(ctx, r.opts.Fixation); err != nil {
		r.engine.Cancel()
		return err
	}

	completion, err := r.stream(ctx)
	if err != nil {
		return err
	}

	if err := r.wait(ctx, r.opts.Interval); err != nil {
		return err
	}
	r.presenter.Clear()
	if err := r.wait(ctx, r.opts.ResponseDelay-r.opts.Interval); err != nil {
		return err
	}

	r.drainKeys()
	r.presenter.PromptResponse()
	prompted := r.clock.Now()
	responses, err := r.collectResponses(ctx)
	if err != nil {
		return err
	}
	answered := r.clock.Now()

	rec, err := metrics.BuildRecord(r.participant, metrics.TrialOutcome{
		SessionID:   sessionID,
		TrialNumber: trialNo,
		Plan:        plan,
		Completion:  completion,
		Responses:   responses,
		Streams:     r.engine.Config().Streams,
		IntervalMs:  int(r.opts.Interval / time.Millisecond),
		Latency:     answered.Sub(prompted),
		CompletedAt: answered,
	})
	if err != nil {
		return fmt.Errorf("score trial: %w", err)
	}
	correct := [2]bool{rec.Outcome1 == 1, rec.Outcome2 == 1}
	log.Info("Trial answered",
		zap.Int("lag", completion.DiffFrame),
		zap.Int("indexDistance", rec.IndexDistance),
		zap.Bool("t1Correct", correct[0]),
		zap.Bool("t2Correct", correct[1]),
	)

	if !practice {
		if err := r.store(ctx, log, rec); err != nil {
			return err
		}
		r.records = append(r.records, rec)
	}

	if err := r.wait(ctx, r.opts.FeedbackDelay); err != nil {
		return err
	}
	r.presenter.ShowFeedback(correct)
	return r.wait(ctx, r.opts.InterTrial-r.opts.FeedbackDelay)
}

// stream ticks the engine once per interval until the last frame.
func (r *Runner) stream(ctx context.Context) (trial.Completion, error) {
	ticker := r.clock.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			r.engine.Cancel()
			return trial.Completion{}, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		select {
		case <-ctx.Done():
			continue
		case <-ticker.C():
			frame, err := r.engine.Tick()
			if err != nil {
				return trial.Completion{}, fmt.Errorf("frame %d: %w", r.engine.FrameCount(), err)
			}
			r.presenter.ShowFrame(frame)
			if frame.Completion != nil {
				return *frame.Completion, nil
			}
		}
	}
}

// drainKeys discards keystrokes typed while the stream was running.
func (r *Runner) drainKeys() {
	for {
		select {
		case _, ok := <-r.keys:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// collectResponses waits for two digit keys. Anything else is rejected and does not
// count. There is no timeout.
func (r *Runner) collectResponses(ctx context.Context) ([2]string, error) {
	var responses [2]string
	for slot := 0; slot < len(responses); {
		if err := ctx.Err(); err != nil {
			return responses, fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		select {
		case <-ctx.Done():
			continue
		case key, ok := <-r.keys:
			if !ok {
				return responses, ErrInputClosed
			}
			if !utils.IsDigitKey(key) {
				r.presenter.RejectKey(key)
				continue
			}
			responses[slot] = string(key)
			r.presenter.ShowResponse(slot, key)
			slot++
		}
	}
	return responses, nil
}

// store appends the record to every store, retrying with a linearly growing pause.
// A retry only goes to the stores that failed, so no store sees the record twice.
// When every attempt fails the full record goes to the error log so it is not lost.
func (r *Runner) store(ctx context.Context, log *zap.Logger, rec models.TrialRecord) error {
	pending := repository.Members(r.trials)
	var err error
	for attempt := 1; attempt <= r.opts.StoreAttempts; attempt++ {
		var failed []repository.TrialSink
		err = nil
		for _, s := range pending {
			if appendErr := s.Append(ctx, rec); appendErr != nil {
				failed = append(failed, s)
				err = errors.Join(err, appendErr)
			}
		}
		if len(failed) == 0 {
			return nil
		}
		pending = failed
		log.Warn("Failed to store trial",
			zap.Int("attempt", attempt),
			zap.Int("failedStores", len(failed)),
			zap.Error(err),
		)
		if attempt < r.opts.StoreAttempts {
			if waitErr := r.wait(ctx, time.Duration(attempt)*r.opts.StoreBackoff); waitErr != nil {
				err = waitErr
				break
			}
		}
	}
	log.Error("Giving up on trial record", zap.Any("record", rec), zap.Error(err))
	return fmt.Errorf("store trial %d: %w", rec.TrialNumber, err)
}

func (r *Runner) saveSession(ctx context.Context, s models.Session) error {
	if r.sessions == nil {
		return nil
	}
	if err := r.sessions.SaveSession(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	case <-r.clock.After(d):
		return nil
	}
}

func (r *Runner) logSummary(log *zap.Logger, s models.Session) {
	summary := metrics.Summarize(r.records)
	fields := []zap.Field{
		zap.Int("stored", s.CompletedTrials),
		zap.Int("planned", s.PlannedTrials),
	}
	if summary.Overall.T1Accuracy.Calculated {
		fields = append(fields,
			zap.Float64("t1Accuracy", summary.Overall.T1Accuracy.Value),
			zap.Float64("t2Accuracy", summary.Overall.T2Accuracy.Value),
		)
	}
	if summary.Overall.T2GivenT1.Calculated {
		fields = append(fields, zap.Float64("t2GivenT1", summary.Overall.T2GivenT1.Value))
	}
	log.Info("Session finished", fields...)
}
