package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/heuristic"
	"github.com/Veraticus/the-budget-must-balance/internal/llm"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

// OfflineMessage is reported when neither the remote collaborators nor the
// caller supplied any text to extract from.
const OfflineMessage = "Voice processing is unavailable offline. No text was available to extract from."

// State is a step of the extraction state machine.
type State int

// Extraction states.
const (
	StateIdle State = iota
	StateTranscribing
	StateExtracting
	StateValidating
	StateCommitted
	StateFallenBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTranscribing:
		return "transcribing"
	case StateExtracting:
		return "extracting"
	case StateValidating:
		return "validating"
	case StateCommitted:
		return "committed"
	case StateFallenBack:
		return "fallen_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InFlight reports whether a remote call or validation is underway.
func (s State) InFlight() bool {
	return s == StateTranscribing || s == StateExtracting || s == StateValidating
}

// Outcome describes one pass through the pipeline.
type Outcome struct {
	// Reason is why the pipeline fell back. Nil when Final is StateCommitted.
	Reason     error
	Transcript string
	Result     model.ExtractionResult
	Report     service.CommitReport
	Trail      []State
	Final      State
	// Discarded is set when the session was canceled before the outcome
	// arrived. Discarded outcomes are never committed.
	Discarded bool
}

// FellBack reports whether the heuristic path produced the result.
func (o Outcome) FellBack() bool {
	return o.Final == StateFallenBack
}

// stageResult is the tagged return of every stage.
type stageResult struct {
	err    error
	text   string
	result model.ExtractionResult
	ok     bool
}

func succeeded(text string) stageResult { return stageResult{ok: true, text: text} }
func failed(err error) stageResult      { return stageResult{err: err} }

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHeuristic replaces the fallback extractor.
func WithHeuristic(e *heuristic.Extractor) Option {
	return func(p *Pipeline) { p.heuristic = e }
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(observe func(State)) Option {
	return func(p *Pipeline) { p.observe = observe }
}

// Pipeline runs transcription, structured extraction, validation and
// commit for a single utterance.
type Pipeline struct {
	transcriber llm.Transcriber
	completer   llm.Completer
	committer   service.Committer
	heuristic   *heuristic.Extractor
	logger      *slog.Logger
	observe     func(State)
}

// NewPipeline creates a pipeline. transcriber and completer may be nil when
// no credential is configured; the pipeline then runs heuristics only.
func NewPipeline(transcriber llm.Transcriber, completer llm.Completer, committer service.Committer, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		transcriber: transcriber,
		completer:   completer,
		committer:   committer,
		heuristic:   heuristic.New(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes audio and commits the resulting batch.
func (p *Pipeline) Run(ctx context.Context, audio model.Audio) Outcome {
	return p.Commit(p.Process(ctx, audio))
}

// RunText processes already-transcribed text and commits the result.
func (p *Pipeline) RunText(ctx context.Context, transcript string) Outcome {
	return p.Commit(p.ProcessText(ctx, transcript))
}

// Process runs audio through the state machine without committing.
func (p *Pipeline) Process(ctx context.Context, audio model.Audio) Outcome {
	return p.processAudio(ctx, audio, p.observe)
}

// ProcessText starts the state machine at Extracting without committing.
func (p *Pipeline) ProcessText(ctx context.Context, transcript string) Outcome {
	return p.processText(ctx, transcript, p.observe)
}

// Commit stores the outcome's batch in the ledger and returns to Idle.
// Discarded outcomes and outcomes that never reached a terminal state are
// returned unchanged.
func (p *Pipeline) Commit(out Outcome) Outcome {
	if out.Discarded || (out.Final != StateCommitted && out.Final != StateFallenBack) {
		return out
	}

	if p.committer != nil {
		out.Report = p.committer.CommitExtraction(out.Result)
	}
	out.Trail = append(out.Trail, StateIdle)

	p.logger.Info("committed voice extraction",
		"path", out.Final.String(),
		"incomes", len(out.Report.Incomes),
		"expenses", len(out.Report.Expenses),
		"dropped", out.Report.Dropped)
	return out
}

type run struct {
	observe func(State)
	logger  *slog.Logger
	out     Outcome
}

func (r *run) transition(s State) {
	from := StateIdle
	if n := len(r.out.Trail); n > 0 {
		from = r.out.Trail[n-1]
	}
	r.out.Trail = append(r.out.Trail, s)
	r.out.Final = s
	r.logger.Debug("extraction transition", "from", from.String(), "to", s.String())
	if r.observe != nil {
		r.observe(s)
	}
}

func (p *Pipeline) newRun(observe func(State)) *run {
	return &run{
		observe: observe,
		logger:  p.logger,
		out:     Outcome{Trail: []State{StateIdle}, Final: StateIdle},
	}
}

func (p *Pipeline) processAudio(ctx context.Context, audio model.Audio, observe func(State)) Outcome {
	r := p.newRun(observe)

	r.transition(StateTranscribing)
	switch tr := p.transcribe(ctx, audio); {
	case tr.ok:
		r.out.Transcript = tr.text
		p.extract(ctx, r)
	default:
		p.fallBack(r, tr.err)
	}
	return r.out
}

func (p *Pipeline) processText(ctx context.Context, transcript string, observe func(State)) Outcome {
	r := p.newRun(observe)
	r.out.Transcript = strings.TrimSpace(transcript)

	if r.out.Transcript == "" {
		p.fallBack(r, common.ErrEmptyTranscription)
		return r.out
	}
	p.extract(ctx, r)
	return r.out
}

// extract covers Extracting and Validating for a non-empty transcript.
func (p *Pipeline) extract(ctx context.Context, r *run) {
	r.transition(StateExtracting)
	cr := p.complete(ctx, r.out.Transcript)
	if !cr.ok {
		p.fallBack(r, cr.err)
		return
	}

	r.transition(StateValidating)
	vr := validate(cr.text)
	if !vr.ok {
		p.fallBack(r, vr.err)
		return
	}

	r.out.Result = vr.result
	r.transition(StateCommitted)
}

func (p *Pipeline) fallBack(r *run, reason error) {
	r.out.Reason = reason
	r.transition(StateFallenBack)

	if r.out.Transcript == "" {
		r.out.Result = model.ExtractionResult{
			Message:  OfflineMessage,
			Incomes:  []model.DraftIncome{},
			Expenses: []model.DraftExpense{},
		}
	} else {
		r.out.Result = p.heuristic.Extract(r.out.Transcript)
	}

	p.logger.Warn("falling back to heuristic extraction",
		"reason", reason,
		"has_transcript", r.out.Transcript != "")
}

func (p *Pipeline) transcribe(ctx context.Context, audio model.Audio) (res stageResult) {
	if p.transcriber == nil {
		return failed(common.ErrNoCredential)
	}
	if audio.Empty() {
		return failed(common.ErrEmptyTranscription)
	}

	defer recoverStage(&res, "transcription")

	text, err := p.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return failed(fmt.Errorf("transcription failed: %w", err))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return failed(common.ErrEmptyTranscription)
	}
	return succeeded(text)
}

func (p *Pipeline) complete(ctx context.Context, transcript string) (res stageResult) {
	if p.completer == nil {
		return failed(common.ErrNoCredential)
	}

	defer recoverStage(&res, "completion")

	content, err := p.completer.Complete(ctx, SystemPrompt, BuildPrompt(transcript))
	if err != nil {
		return failed(fmt.Errorf("structured extraction failed: %w", err))
	}
	return succeeded(content)
}

func validate(content string) stageResult {
	result, err := ParsePayload(content)
	if err != nil {
		return failed(err)
	}
	return stageResult{ok: true, result: result}
}

// recoverStage converts a panicking collaborator into a failed stage.
func recoverStage(res *stageResult, stage string) {
	if r := recover(); r != nil {
		*res = failed(fmt.Errorf("%w: %s panicked: %v", common.ErrRemoteUnavailable, stage, r))
	}
}

// IsOffline reports whether reason means no remote collaborator could be used.
func IsOffline(reason error) bool {
	return errors.Is(reason, common.ErrNoCredential) || errors.Is(reason, common.ErrRemoteUnavailable)
}
