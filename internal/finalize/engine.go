package finalize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wrapup/internal/gateway"
	"github.com/fyrsmithlabs/wrapup/internal/ledger"
	"github.com/fyrsmithlabs/wrapup/internal/session"
)

const instrumentationName = "github.com/fyrsmithlabs/wrapup/internal/finalize"

// ErrPRNotMerged is the gate failure: the session's PR is missing or
// not merged, so no mutation may run.
var ErrPRNotMerged = errors.New("PR not merged")

// Engine executes the finalize protocol.
type Engine struct {
	gw       gateway.Gateway
	store    session.Store
	specsDir string
	logger   *zap.Logger

	tracer     trace.Tracer
	meter      metric.Meter
	runCounter metric.Int64Counter
}

// NewEngine creates a finalize engine.
func NewEngine(gw gateway.Gateway, store session.Store, specsDir string, logger *zap.Logger) (*Engine, error) {
	if gw == nil {
		return nil, errors.New("gateway is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if specsDir == "" {
		specsDir = "specs"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		gw:       gw,
		store:    store,
		specsDir: specsDir,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	e.initMetrics()

	return e, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (e *Engine) initMetrics() {
	var err error

	e.runCounter, err = e.meter.Int64Counter(
		"wrapup.finalize.runs_total",
		metric.WithDescription("Total number of finalize runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		e.logger.Warn("failed to create run counter", zap.Error(err))
	}
}

// Run executes finalize for the given session.
//
// Handled failures (unmerged PR, missing resources, ledger errors)
// come back as an error-shaped Result with a nil error; the returned
// error is reserved for data-integrity precondition violations such as
// an invalid session record.
func (e *Engine) Run(ctx context.Context, s *session.Session) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "finalize.run")
	defer span.End()

	if s == nil {
		return nil, errors.New("session is required")
	}
	if err := s.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	span.SetAttributes(
		attribute.String("session_type", string(s.Type)),
		attribute.Int("pr_number", s.PRNumber),
	)

	res := e.run(ctx, s)

	if e.runCounter != nil {
		e.runCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(res.Status)),
			attribute.String("session_type", string(s.Type)),
		))
	}
	if res.Status != StatusSuccess {
		span.SetStatus(codes.Error, res.Error)
	}

	return res, nil
}

func (e *Engine) run(ctx context.Context, s *session.Session) *Result {
	// Gate: the single check protecting every mutation below from
	// running against unmerged work.
	if s.PRNumber == 0 {
		return errorResult(s.Type, "no pull request",
			"session has no PR number; run publish first", nil)
	}

	pr, err := e.gw.GetPullRequest(ctx, s.PRNumber)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			r := errorResult(s.Type, "PR not found", err.Error(), nil)
			r.PR = &PRResult{Number: s.PRNumber}
			return r
		}
		return errorResult(s.Type, "gateway error", err.Error(), nil)
	}

	if !pr.Merged {
		e.logger.Warn("finalize aborted, PR not merged",
			zap.Int("pr", pr.Number),
			zap.String("state", pr.State),
		)
		return errorResult(s.Type, ErrPRNotMerged.Error(),
			fmt.Sprintf("PR #%d is %s and not merged; no changes were made", pr.Number, pr.State), pr)
	}

	var res *Result
	switch s.Type {
	case session.TypeGitHubIssue:
		res = e.finalizeIssue(ctx, s, pr)
	case session.TypeSpeckit:
		res = e.finalizeSpeckit(ctx, s, pr)
	default:
		// Validate rejects unknown types; this is the compile-time
		// extension point for new session variants.
		return errorResult(s.Type, "unhandled session type", string(s.Type), pr)
	}

	if res.Status != StatusSuccess {
		return res
	}

	// Best-effort board sync never fails the run.
	synced := true
	milestone := s.FeatureID
	if milestone == "" {
		milestone = fmt.Sprintf("#%d", s.IssueNumber)
	}
	if err := e.gw.SyncProjectBoard(ctx, s.LedgerPath(e.specsDir), milestone); err != nil {
		synced = false
		e.logger.Warn("project board sync failed", zap.Error(err))
	}
	if s.Type == session.TypeSpeckit {
		res.SyncedToProjects = &synced
	}

	res.ReadyForWrap = true

	now := time.Now()
	s.FinalizedAt = &now
	s.LastResult = string(res.Status)
	if err := e.store.Save(s); err != nil {
		e.logger.Warn("failed to record finalize on session", zap.Error(err))
	}

	e.logger.Info("finalize complete",
		zap.String("session_type", string(s.Type)),
		zap.Int("pr", pr.Number),
	)

	return res
}

// finalizeIssue closes the tracked issue and marks the session's tasks.
func (e *Engine) finalizeIssue(ctx context.Context, s *session.Session, pr *gateway.PullRequest) *Result {
	res := &Result{
		Status:      StatusSuccess,
		SessionType: s.Type,
		PRMerged:    true,
	}

	issue, err := e.closePhase(ctx, s.IssueNumber, fmt.Sprintf("Resolved via PR #%d", s.PRNumber))
	if err != nil {
		return errorResult(s.Type, classify(err), err.Error(), pr)
	}
	res.Issue = issue

	tasks, err := e.markTasks(s)
	if err != nil {
		return errorResult(s.Type, classify(err), err.Error(), pr)
	}
	res.Tasks = tasks

	return res
}

// finalizeSpeckit closes the phase issue, patches the parent
// checklist, marks tasks, and handles the PR draft transition.
func (e *Engine) finalizeSpeckit(ctx context.Context, s *session.Session, pr *gateway.PullRequest) *Result {
	res := &Result{
		Status:      StatusSuccess,
		SessionType: s.Type,
		PRMerged:    true,
	}

	phase, err := e.closePhase(ctx, s.IssueNumber, fmt.Sprintf("Phase complete, resolved via PR #%d", s.PRNumber))
	if err != nil {
		return errorResult(s.Type, classify(err), err.Error(), pr)
	}
	res.PhaseIssue = phase

	parent := &ParentResult{Number: s.ParentIssue}
	marker := fmt.Sprintf("#%d", s.IssueNumber)

	var patchedBody string
	err = e.gw.UpdateIssueBody(ctx, s.ParentIssue, func(body string) (string, error) {
		out, changed, found := toggleChecklist(body, marker)
		if !found {
			// Phase not on the checklist; leave the body untouched.
			patchedBody = body
			return body, nil
		}
		parent.ChecklistUpdated = changed
		patchedBody = out
		return out, nil
	})
	switch {
	case err == nil:
		parent.Updated = true
	case errors.Is(err, gateway.ErrConflict):
		// The body changed under us. The write is abandoned, never
		// retried here, but the rest of the protocol still runs so the
		// ledger gets marked; re-running finalize retries the patch.
		parent.Updated = false
		parent.ChecklistUpdated = false
		res.Message = fmt.Sprintf("parent issue #%d update conflicted with a concurrent edit; re-run finalize", s.ParentIssue)
		e.logger.Warn("parent issue update conflicted", zap.Int("issue", s.ParentIssue), zap.Error(err))
	default:
		return errorResult(s.Type, classify(err), err.Error(), pr)
	}

	if patchedBody == "" {
		if parentIssue, err := e.gw.GetIssue(ctx, s.ParentIssue); err == nil {
			patchedBody = parentIssue.Body
		}
	}
	phasesTotal, phasesDone := countChecklist(patchedBody)
	parent.Progress = fmt.Sprintf("%d/%d phases complete", phasesDone, phasesTotal)
	res.ParentIssue = parent

	tasks, err := e.markTasks(s)
	if err != nil {
		return errorResult(s.Type, classify(err), err.Error(), pr)
	}
	res.Tasks = tasks

	prRes, err := e.transitionPR(ctx, s, pr, phasesDone, phasesTotal)
	if err != nil {
		return errorResult(s.Type, classify(err), err.Error(), pr)
	}
	res.PR = prRes

	return res
}

// closePhase closes an issue idempotently: an already-closed issue is
// recorded as closed with no new comment and no mutating call.
func (e *Engine) closePhase(ctx context.Context, number int, comment string) (*IssueResult, error) {
	issue, err := e.gw.GetIssue(ctx, number)
	if err != nil {
		return nil, err
	}

	res := &IssueResult{Number: number, Closed: true}
	if issue.State == gateway.StateClosed {
		return res, nil
	}

	if err := e.gw.CloseIssue(ctx, number, comment); err != nil {
		return nil, err
	}
	res.Comment = comment

	e.logger.Info("closed issue", zap.Int("issue", number))
	return res, nil
}

// markTasks marks the session's touched tasks done in its ledger and
// returns the resulting counts. Identifiers already done or absent are
// ignored, so re-runs never double-count.
func (e *Engine) markTasks(s *session.Session) (*TaskResult, error) {
	path := s.LedgerPath(e.specsDir)
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task ledger %s: %w", path, err)
	}

	doc, marked, err := ledger.MarkDone(string(data), s.TasksTouched)
	if err != nil {
		return nil, err
	}

	if marked > 0 {
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			return nil, fmt.Errorf("failed to write task ledger %s: %w", path, err)
		}
		e.logger.Info("marked tasks done",
			zap.String("ledger", path),
			zap.Int("marked", marked),
		)
	}

	total, completed, err := ledger.Count(doc)
	if err != nil {
		return nil, err
	}

	return &TaskResult{File: path, Total: total, Completed: completed}, nil
}

// transitionPR promotes the PR out of draft when all phases are done,
// or appends a phase note to its description otherwise.
func (e *Engine) transitionPR(ctx context.Context, s *session.Session, pr *gateway.PullRequest, phasesDone, phasesTotal int) (*PRResult, error) {
	res := &PRResult{Number: pr.Number}

	if phasesTotal > 0 && phasesDone == phasesTotal {
		if pr.Draft {
			if err := e.gw.MarkReadyForReview(ctx, pr.Number); err != nil {
				return nil, err
			}
			e.logger.Info("promoted PR out of draft", zap.Int("pr", pr.Number))
		}
		res.StillDraft = false
		res.Reason = "all phases complete"
		return res, nil
	}

	res.StillDraft = pr.Draft
	res.Reason = fmt.Sprintf("%d of %d phases complete", phasesDone, phasesTotal)

	// Append-only phase note; prior phase notes are never replaced. A
	// note already present means a re-run, which appends nothing.
	note := fmt.Sprintf("Phase #%d complete (%d/%d)", s.IssueNumber, phasesDone, phasesTotal)
	if strings.Contains(pr.Body, fmt.Sprintf("Phase #%d complete", s.IssueNumber)) {
		return res, nil
	}

	if _, err := e.gw.UpdatePullRequest(ctx, pr.Number, pr.Title, pr.Body+"\n\n- "+note); err != nil {
		return nil, err
	}
	res.DescriptionUpdated = true

	return res, nil
}

// classify maps a failure to the short error name surfaced in results.
func classify(err error) string {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return "not found"
	case errors.Is(err, gateway.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, gateway.ErrConflict):
		return "conflict"
	case errors.Is(err, ledger.ErrMalformed):
		return "malformed ledger"
	default:
		return "internal error"
	}
}
