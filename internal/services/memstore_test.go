package services

import (
	"context"
	"fmt"
	"time"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/models"
)

// memStore is an in-memory stand-in for the pgx repositories. It mirrors
// their guarantees: guarded debits, duplicate barcode rejection, transition
// checks against committed state, terminal session status.
type memStore struct {
	accounts     map[int]*models.Account
	perms        map[int]*models.OperatorPermissions
	transactions []models.CoinTransaction
	sessions     map[int]*models.Session
	seals        map[int]*models.Seal
	tags         map[int][]models.SealTag
	activity     []models.ActivityLog
	nextID       int

	failActivity bool // force activity writes to fail
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[int]*models.Account),
		perms:    make(map[int]*models.OperatorPermissions),
		sessions: make(map[int]*models.Session),
		seals:    make(map[int]*models.Seal),
		tags:     make(map[int][]models.SealTag),
		nextID:   1000,
	}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) addAccount(a *models.Account) *models.Account {
	m.accounts[a.ID] = a
	return a
}

// --- AccountStore ---

func (m *memStore) Get(_ context.Context, id int) (*models.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return a, nil
}

func (m *memStore) Create(_ context.Context, a *models.Account) error {
	a.ID = m.id()
	a.CreatedAt = time.Now()
	m.accounts[a.ID] = a
	return nil
}

func (m *memStore) CreatorChain(_ context.Context, accountID int) ([]int, error) {
	var chain []int
	cur, ok := m.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	for cur.CreatedByID != nil {
		chain = append(chain, *cur.CreatedByID)
		next, ok := m.accounts[*cur.CreatedByID]
		if !ok {
			break
		}
		cur = next
	}
	return chain, nil
}

func (m *memStore) SetActive(_ context.Context, id int, active bool) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.IsActive = active
	return nil
}

func (m *memStore) SetCompany(_ context.Context, id, companyID int) error {
	a, ok := m.accounts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.CompanyID = &companyID
	return nil
}

// --- OperatorPermissionsStore ---

func (m *memStore) GetPerms(_ context.Context, accountID int) (*models.OperatorPermissions, error) {
	return m.perms[accountID], nil
}

func (m *memStore) Upsert(_ context.Context, p *models.OperatorPermissions) error {
	if p.ID == 0 {
		p.ID = m.id()
	}
	m.perms[p.AccountID] = p
	return nil
}

// permsStore adapts memStore to OperatorPermissionsStore (Get name collides
// with AccountStore.Get)
type permsStore struct{ m *memStore }

func (p permsStore) Get(ctx context.Context, accountID int) (*models.OperatorPermissions, error) {
	return p.m.GetPerms(ctx, accountID)
}

func (p permsStore) Upsert(ctx context.Context, perms *models.OperatorPermissions) error {
	return p.m.Upsert(ctx, perms)
}

// --- LedgerStore ---

func (m *memStore) Transfer(_ context.Context, fromID, toID, amount int, reason models.TransactionReason, notes string) (*models.CoinTransaction, error) {
	from, ok := m.accounts[fromID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if from.Coins < amount {
		return nil, apperrors.ErrInsufficientFunds
	}
	to, ok := m.accounts[toID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	from.Coins -= amount
	if toID != fromID {
		to.Coins += amount
	}
	txn := models.CoinTransaction{
		ID: m.id(), FromUserID: fromID, ToUserID: toID,
		Amount: amount, Reason: reason, Notes: notes, CreatedAt: time.Now(),
	}
	m.transactions = append(m.transactions, txn)
	return &txn, nil
}

func (m *memStore) ListByAccount(_ context.Context, accountID, _, _ int) ([]models.CoinTransaction, error) {
	var out []models.CoinTransaction
	for _, t := range m.transactions {
		if t.FromUserID == accountID || t.ToUserID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- SessionStore ---

func (m *memStore) CreateWithSeal(ctx context.Context, session *models.Session, barcode string) (*models.Seal, error) {
	for _, s := range m.seals {
		if s.Barcode == barcode {
			return nil, apperrors.ErrDuplicateBarcode
		}
	}
	if _, err := m.Transfer(ctx, session.CreatedByID, session.CreatedByID, 1, models.ReasonSessionCreation, "session creation spend"); err != nil {
		return nil, err
	}
	session.ID = m.id()
	session.Status = models.SessionPending
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session

	seal := &models.Seal{ID: m.id(), SessionID: session.ID, Barcode: barcode, CreatedAt: time.Now()}
	m.seals[seal.ID] = seal
	return seal, nil
}

func (m *memStore) GetSession(_ context.Context, id int) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id int, to models.SessionStatus) error {
	s, ok := m.sessions[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if s.Status == models.SessionCompleted {
		return apperrors.NewInvalidTransition("session", string(s.Status), string(to))
	}
	s.Status = to
	return nil
}

// sessionStore adapts memStore to SessionStore (Get collides with AccountStore.Get)
type sessionStore struct{ m *memStore }

func (s sessionStore) CreateWithSeal(ctx context.Context, session *models.Session, barcode string) (*models.Seal, error) {
	return s.m.CreateWithSeal(ctx, session, barcode)
}

func (s sessionStore) Get(ctx context.Context, id int) (*models.Session, error) {
	return s.m.GetSession(ctx, id)
}

func (s sessionStore) UpdateStatus(ctx context.Context, id int, to models.SessionStatus) error {
	return s.m.UpdateStatus(ctx, id, to)
}

// --- SealStore ---

type sealStore struct{ m *memStore }

func (s sealStore) GetByBarcode(_ context.Context, barcode string) (*models.Seal, error) {
	for _, seal := range s.m.seals {
		if seal.Barcode == barcode {
			return seal, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s sealStore) Get(_ context.Context, id int) (*models.Seal, error) {
	seal, ok := s.m.seals[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return seal, nil
}

func (s sealStore) GetPrimaryBySession(_ context.Context, sessionID int) (*models.Seal, error) {
	var primary *models.Seal
	for _, seal := range s.m.seals {
		if seal.SessionID == sessionID && (primary == nil || seal.ID < primary.ID) {
			primary = seal
		}
	}
	if primary == nil {
		return nil, apperrors.ErrNotFound
	}
	return primary, nil
}

func (s sealStore) Verify(ctx context.Context, barcode string, guardID int, completeSession bool) (*models.Seal, error) {
	seal, err := s.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if seal.Verified {
		return nil, apperrors.ErrAlreadyVerified
	}
	if seal.Status != nil {
		return nil, apperrors.NewInvalidTransition("seal", string(*seal.Status), string(models.SealVerified))
	}
	now := time.Now()
	status := models.SealVerified
	seal.Verified = true
	seal.VerifiedByID = &guardID
	seal.ScannedAt = &now
	seal.Status = &status
	seal.StatusUpdatedAt = &now

	sess := s.m.sessions[seal.SessionID]
	if completeSession {
		sess.Status = models.SessionCompleted
	} else if sess.Status == models.SessionPending {
		sess.Status = models.SessionInProgress
	}
	return seal, nil
}

func (s sealStore) UpdateStatus(_ context.Context, sealID, sessionID int, to models.SealStatus, comment, evidence string) (*models.Seal, error) {
	seal, ok := s.m.seals[sealID]
	if !ok || seal.SessionID != sessionID {
		return nil, apperrors.ErrNotFound
	}
	if !models.CanTransitionSeal(seal.Status, to) {
		from := ""
		if seal.Status != nil {
			from = string(*seal.Status)
		}
		return nil, apperrors.NewInvalidTransition("seal", from, string(to))
	}
	now := time.Now()
	seal.Status = &to
	seal.StatusComment = comment
	seal.StatusEvidence = evidence
	seal.StatusUpdatedAt = &now
	return seal, nil
}

func (s sealStore) UpsertMissing(_ context.Context, sessionID int, barcode, comment string) error {
	for _, seal := range s.m.seals {
		if seal.SessionID == sessionID && seal.Barcode == barcode {
			if seal.Status != nil {
				return apperrors.NewInvalidTransition("seal", string(*seal.Status), string(models.SealMissing))
			}
			now := time.Now()
			status := models.SealMissing
			seal.Status = &status
			seal.StatusComment = comment
			seal.StatusUpdatedAt = &now
			return nil
		}
	}
	now := time.Now()
	status := models.SealMissing
	seal := &models.Seal{
		ID: s.m.id(), SessionID: sessionID, Barcode: barcode,
		Status: &status, StatusComment: comment, StatusUpdatedAt: &now, CreatedAt: now,
	}
	s.m.seals[seal.ID] = seal
	return nil
}

func (s sealStore) CountByStatus(_ context.Context, sessionID int) (map[models.SealStatus]int, error) {
	counts := make(map[models.SealStatus]int)
	for _, seal := range s.m.seals {
		if seal.SessionID == sessionID && seal.Status != nil {
			counts[*seal.Status]++
		}
	}
	return counts, nil
}

func (s sealStore) ListBySession(_ context.Context, sessionID int) ([]*models.Seal, error) {
	var out []*models.Seal
	for _, seal := range s.m.seals {
		if seal.SessionID == sessionID {
			out = append(out, seal)
		}
	}
	return out, nil
}

// --- SealTagStore ---

type tagStore struct{ m *memStore }

func (t tagStore) Declare(_ context.Context, sessionID int, tags []models.DeclaredTag) error {
	existing := make(map[string]bool)
	for _, tag := range t.m.tags[sessionID] {
		existing[tag.TagID] = true
	}
	for _, d := range tags {
		if existing[d.TagID] {
			continue
		}
		t.m.tags[sessionID] = append(t.m.tags[sessionID], models.SealTag{
			ID: t.m.id(), SessionID: sessionID, TagID: d.TagID,
			CaptureMethod: d.CaptureMethod, DeclaredAt: time.Now(),
		})
	}
	return nil
}

func (t tagStore) ListBySession(_ context.Context, sessionID int) ([]models.SealTag, error) {
	return t.m.tags[sessionID], nil
}

func (t tagStore) CountBySession(_ context.Context, sessionID int) (int, error) {
	return len(t.m.tags[sessionID]), nil
}

// --- ActivityStore ---

type activityStore struct{ m *memStore }

func (a activityStore) Create(_ context.Context, entry *models.ActivityLog) error {
	if a.m.failActivity {
		return fmt.Errorf("activity store down")
	}
	entry.ID = a.m.id()
	entry.CreatedAt = time.Now()
	a.m.activity = append(a.m.activity, *entry)
	return nil
}

func (a activityStore) ListSessionCreateEntries(_ context.Context, sessionID int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, e := range a.m.activity {
		if e.Action == models.ActionCreate && e.TargetType == "session" && e.TargetID != nil && *e.TargetID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Notifier ---

type recordingNotifier struct {
	calls []int // session ids
	err   error
}

func (n *recordingNotifier) SessionCompleted(_ context.Context, _, sessionID int, _ *models.VerificationSummary) error {
	n.calls = append(n.calls, sessionID)
	return n.err
}

// --- fixtures ---

func strp(s models.SubRole) *models.SubRole { return &s }

func ip(v int) *int { return &v }

// seedHierarchy builds root -> admin -> company -> operator/guard accounts
func seedHierarchy(m *memStore) (root, admin, company, op, guard *models.Account) {
	root = m.addAccount(&models.Account{ID: 1, Name: "root", Role: models.RoleSuperAdmin, Coins: 1000000, IsRoot: true, IsActive: true})
	admin = m.addAccount(&models.Account{ID: 2, Name: "admin", Role: models.RoleAdmin, CreatedByID: ip(1), IsActive: true})
	company = m.addAccount(&models.Account{ID: 3, Name: "acme transport", Role: models.RoleCompany, CreatedByID: ip(2), CompanyID: ip(3), IsActive: true})
	op = m.addAccount(&models.Account{ID: 4, Name: "op", Role: models.RoleEmployee, SubRole: strp(models.SubRoleOperator), CompanyID: ip(3), CreatedByID: ip(2), IsActive: true})
	guard = m.addAccount(&models.Account{ID: 5, Name: "guard", Role: models.RoleEmployee, SubRole: strp(models.SubRoleGuard), CompanyID: ip(3), CreatedByID: ip(2), IsActive: true})
	m.perms[4] = &models.OperatorPermissions{ID: 400, AccountID: 4, CanCreate: true, CanModify: true}
	return root, admin, company, op, guard
}

func totalCoins(m *memStore) int {
	total := 0
	for _, a := range m.accounts {
		total += a.Coins
	}
	return total
}
