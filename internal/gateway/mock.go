package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Mock is an in-memory Gateway used by the engine tests. It records
// every call so tests can assert exactly which side effects ran.
type Mock struct {
	mu sync.Mutex

	PRs      map[int]*PullRequest
	Issues   map[int]*Issue
	Comments map[int][]string

	// Calls records every invocation, e.g. "GetIssue(663)".
	Calls []string

	// Mutations records only the calls that change external state.
	Mutations []string

	// Error overrides, applied before any state change.
	CloseIssueErr error
	UpdateBodyErr error
	CreatePRErr   error
	UpdatePRErr   error
	ReadyErr      error
	SyncErr       error

	nextPRNumber int
}

// NewMock creates an empty mock gateway.
func NewMock() *Mock {
	return &Mock{
		PRs:          make(map[int]*PullRequest),
		Issues:       make(map[int]*Issue),
		Comments:     make(map[int][]string),
		nextPRNumber: 100,
	}
}

func (m *Mock) record(call string) {
	m.Calls = append(m.Calls, call)
}

func (m *Mock) recordMutation(call string) {
	m.record(call)
	m.Mutations = append(m.Mutations, call)
}

func (m *Mock) GetPullRequest(_ context.Context, number int) (*PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("GetPullRequest(%d)", number))

	pr, ok := m.PRs[number]
	if !ok {
		return nil, fmt.Errorf("%w: PR #%d", ErrNotFound, number)
	}
	cp := *pr
	return &cp, nil
}

func (m *Mock) GetIssue(_ context.Context, number int) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("GetIssue(%d)", number))

	issue, ok := m.Issues[number]
	if !ok {
		return nil, fmt.Errorf("%w: issue #%d", ErrNotFound, number)
	}
	cp := *issue
	return &cp, nil
}

func (m *Mock) CloseIssue(_ context.Context, number int, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordMutation(fmt.Sprintf("CloseIssue(%d)", number))

	if m.CloseIssueErr != nil {
		return m.CloseIssueErr
	}
	issue, ok := m.Issues[number]
	if !ok {
		return fmt.Errorf("%w: issue #%d", ErrNotFound, number)
	}
	if comment != "" {
		m.Comments[number] = append(m.Comments[number], comment)
	}
	issue.State = StateClosed
	return nil
}

func (m *Mock) UpdateIssueBody(_ context.Context, number int, transform func(body string) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("UpdateIssueBody(%d)", number))

	if m.UpdateBodyErr != nil {
		return m.UpdateBodyErr
	}
	issue, ok := m.Issues[number]
	if !ok {
		return fmt.Errorf("%w: issue #%d", ErrNotFound, number)
	}
	updated, err := transform(issue.Body)
	if err != nil {
		return err
	}
	// Mirrors the real implementation: an unchanged body is not
	// written, so it does not count as a mutation.
	if updated == issue.Body {
		return nil
	}
	m.Mutations = append(m.Mutations, fmt.Sprintf("UpdateIssueBody(%d)", number))
	issue.Body = updated
	return nil
}

func (m *Mock) CreatePullRequest(_ context.Context, pr NewPullRequest) (*PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordMutation(fmt.Sprintf("CreatePullRequest(%s)", pr.Head))

	if m.CreatePRErr != nil {
		return nil, m.CreatePRErr
	}
	m.nextPRNumber++
	created := &PullRequest{
		Number: m.nextPRNumber,
		State:  StateOpen,
		Draft:  pr.Draft,
		Title:  pr.Title,
		Body:   pr.Body,
	}
	m.PRs[created.Number] = created
	cp := *created
	return &cp, nil
}

func (m *Mock) UpdatePullRequest(_ context.Context, number int, title, body string) (*PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordMutation(fmt.Sprintf("UpdatePullRequest(%d)", number))

	if m.UpdatePRErr != nil {
		return nil, m.UpdatePRErr
	}
	pr, ok := m.PRs[number]
	if !ok {
		return nil, fmt.Errorf("%w: PR #%d", ErrNotFound, number)
	}
	pr.Title = title
	pr.Body = body
	cp := *pr
	return &cp, nil
}

func (m *Mock) MarkReadyForReview(_ context.Context, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordMutation(fmt.Sprintf("MarkReadyForReview(%d)", number))

	if m.ReadyErr != nil {
		return m.ReadyErr
	}
	pr, ok := m.PRs[number]
	if !ok {
		return fmt.Errorf("%w: PR #%d", ErrNotFound, number)
	}
	pr.Draft = false
	return nil
}

func (m *Mock) SyncProjectBoard(_ context.Context, ledgerPath, milestone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(fmt.Sprintf("SyncProjectBoard(%s)", ledgerPath))

	if m.SyncErr != nil {
		return m.SyncErr
	}
	return nil
}

var _ Gateway = (*Mock)(nil)
