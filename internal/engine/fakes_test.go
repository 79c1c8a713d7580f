package engine

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
	"github.com/maheshrc27/postflow/internal/uploader"
)

type memRequestRepo struct {
	mu   sync.Mutex
	reqs map[string]*models.PublishRequest
	// casFailures makes the next N UpdateStatusIf calls return an error,
	// simulating a store blip.
	casFailures int
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{reqs: make(map[string]*models.PublishRequest)}
}

func (m *memRequestRepo) Create(ctx context.Context, r *models.PublishRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *r
	m.reqs[r.ID] = &copied
	return nil
}

func (m *memRequestRepo) GetByID(ctx context.Context, id string) (*models.PublishRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reqs[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *memRequestRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishRequest, error) {
	return m.filter(func(r *models.PublishRequest) bool { return r.UserID == userID }), nil
}

func (m *memRequestRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*models.PublishRequest, error) {
	return m.filter(func(r *models.PublishRequest) bool { return r.AccountID == accountID }), nil
}

func (m *memRequestRepo) ListByStatus(ctx context.Context, status string) ([]*models.PublishRequest, error) {
	return m.filter(func(r *models.PublishRequest) bool { return r.Status == status }), nil
}

func (m *memRequestRepo) filter(keep func(*models.PublishRequest) bool) []*models.PublishRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PublishRequest
	for _, r := range m.reqs {
		if keep(r) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out
}

func (m *memRequestRepo) UpdateStatusIf(ctx context.Context, id, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.casFailures > 0 {
		m.casFailures--
		return false, errors.New("connection reset")
	}
	r, ok := m.reqs[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *memRequestRepo) Requeue(ctx context.Context, id string, nextAttemptAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reqs[id]
	if !ok || r.Status != models.RequestStatusDispatched {
		return false, nil
	}
	r.Status = models.RequestStatusScheduled
	r.NextAttemptAt = nextAttemptAt
	return true, nil
}

func (m *memRequestRepo) SetPlatformPostID(ctx context.Context, id, platformPostID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reqs[id]; ok {
		r.PlatformPostID = platformPostID
	}
	return nil
}

func (m *memRequestRepo) CheckByUserID(ctx context.Context, id string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reqs[id]
	return ok && r.UserID == userID, nil
}

func (m *memRequestRepo) status(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.reqs[id]; ok {
		return r.Status
	}
	return ""
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string][]*models.PublishAttempt
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{attempts: make(map[string][]*models.PublishAttempt)}
}

func (m *memAttemptRepo) Create(ctx context.Context, a *models.PublishAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *a
	m.attempts[a.RequestID] = append(m.attempts[a.RequestID], &copied)
	return nil
}

func (m *memAttemptRepo) ListByRequestID(ctx context.Context, requestID string) ([]*models.PublishAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.PublishAttempt, len(m.attempts[requestID]))
	for i, a := range m.attempts[requestID] {
		copied := *a
		out[i] = &copied
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memAttemptRepo) CountByRequestID(ctx context.Context, requestID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts[requestID]), nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.SocialAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[int64]*models.SocialAccount)}
}

func (m *memAccountRepo) add(account *models.SocialAccount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *memAccountRepo) Create(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	return 0, errors.New("not implemented")
}

func (m *memAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (m *memAccountRepo) GetByExternalID(ctx context.Context, userID int64, platform, externalID string) (*models.SocialAccount, error) {
	return nil, nil
}

func (m *memAccountRepo) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (m *memAccountRepo) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	return ok && account.UserID == userID, nil
}

func (m *memAccountRepo) SetStatus(ctx context.Context, id int64, status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account, ok := m.accounts[id]; ok {
		account.Status = status
		account.ErrorMessage = errorMessage
	}
	return nil
}

func (m *memAccountRepo) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

type staticCredentials struct {
	cred *models.Credential
	err  error
}

func (s *staticCredentials) GetValid(ctx context.Context, accountID int64) (*models.Credential, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.cred, nil
}

type staticMedia struct{}

func (staticMedia) ResolveURL(ctx context.Context, userID int64, mediaRef string) (string, error) {
	return "https://media.example.com/" + mediaRef, nil
}

// scriptedUploader returns the scripted outcomes in order, repeating the
// last one once the script runs out.
type scriptedUploader struct {
	mu      sync.Mutex
	calls   int
	outcome []error
	postID  string
}

func (u *scriptedUploader) Upload(ctx context.Context, cred *models.Credential, mediaURL string, meta uploader.Metadata) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	idx := u.calls
	u.calls++
	if idx >= len(u.outcome) {
		idx = len(u.outcome) - 1
	}
	if idx >= 0 && u.outcome[idx] != nil {
		return "", u.outcome[idx]
	}
	return u.postID, nil
}

func (u *scriptedUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// captureDispatcher records dispatched requests in order.
type captureDispatcher struct {
	mu   sync.Mutex
	seen []string
}

func (d *captureDispatcher) Dispatch(ctx context.Context, req *models.PublishRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, req.ID)
	return nil
}

func (d *captureDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.seen...)
}

func testEngineConfig() Config {
	return Config{
		Workers:     2,
		MaxAttempts: 3,
		BaseBackoff: 5 * time.Millisecond,
		MaxBackoff:  20 * time.Millisecond,
		GraceWindow: time.Minute,
		CallTimeout: time.Second,
	}
}

func testRegistry(u uploader.Uploader) *uploader.Registry {
	r := uploader.NewRegistry()
	r.Register("tiktok", u)
	return r
}
