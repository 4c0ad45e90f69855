package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-access/internal/core/domain"
	"github.com/99minutos/identity-access/internal/core/ports"
	"github.com/99minutos/identity-access/internal/core/service"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

// memStore is an in-memory user table with per-row locks held until the
// owning transaction ends, mirroring SELECT ... FOR UPDATE.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]domain.User
	locks     map[string]*sync.Mutex
	begins    int
	commits   int
	rollbacks int
	updates   int
	updateErr error
	// onUpdate runs inside Update, before the change is staged.
	onUpdate func()
}

func newMemStore(users ...domain.User) *memStore {
	s := &memStore{rows: map[string]domain.User{}, locks: map[string]*sync.Mutex{}}
	for _, u := range users {
		s.rows[u.Username.String()] = u
	}
	return s
}

func (s *memStore) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *memStore) get(name string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[name]
}

func (s *memStore) counts() (begins, commits, rollbacks, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begins, s.commits, s.rollbacks, s.updates
}

func (s *memStore) Begin(_ context.Context) (ports.Transaction, error) {
	s.mu.Lock()
	s.begins++
	s.mu.Unlock()
	return &memTx{store: s, staged: map[string]domain.User{}}, nil
}

type memTx struct {
	store  *memStore
	held   []*sync.Mutex
	staged map[string]domain.User
	done   bool
}

func (t *memTx) Users() ports.UserCommandGateway { return t }

func (t *memTx) ReadByUsername(_ context.Context, name domain.Username, forUpdate bool) (*domain.User, error) {
	if forUpdate {
		l := t.store.lockFor(name.String())
		l.Lock()
		t.held = append(t.held, l)
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	u, ok := t.store.rows[name.String()]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (t *memTx) Update(_ context.Context, u *domain.User) error {
	if t.store.onUpdate != nil {
		t.store.onUpdate()
	}
	if t.store.updateErr != nil {
		return t.store.updateErr
	}
	t.staged[u.Username.String()] = *u
	return nil
}

// Commit mirrors database/sql: once ctx is done the transaction is rolled
// back and the commit fails.
func (t *memTx) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if rbErr := t.Rollback(ctx); rbErr != nil {
			return rbErr
		}
		return err
	}
	t.store.mu.Lock()
	for k, v := range t.staged {
		t.store.rows[k] = v
		t.store.updates++
	}
	t.store.commits++
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	t.store.rollbacks++
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
	t.done = true
}

type stubCurrentUser struct {
	user *domain.User
	err  error
}

func (s *stubCurrentUser) GetCurrentUser(_ context.Context) (*domain.User, error) {
	return s.user, s.err
}

type stubAudit struct {
	mu      sync.Mutex
	err     error
	entries []domain.AuditEntry
}

func (a *stubAudit) Record(_ context.Context, e domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, e)
	return nil
}

type stubHasher struct{}

func (stubHasher) Hash(_ context.Context, raw domain.RawPassword) (domain.PasswordHash, error) {
	return domain.PasswordHash("hashed:" + string(raw.Bytes())), nil
}

func (stubHasher) Verify(_ context.Context, raw domain.RawPassword, h domain.PasswordHash) (bool, error) {
	return string(h) == "hashed:"+string(raw.Bytes()), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustUsername(t *testing.T, s string) domain.Username {
	t.Helper()
	u, err := domain.NewUsername(s)
	if err != nil {
		t.Fatalf("username %q: %v", s, err)
	}
	return u
}

func newUser(t *testing.T, id, name string, role domain.Role, active bool) domain.User {
	t.Helper()
	return domain.User{
		ID:           id,
		Username:     mustUsername(t, name),
		Role:         role,
		IsActive:     active,
		PasswordHash: domain.PasswordHash("hashed:original"),
	}
}

func newAdmin(actor *domain.User, store *memStore, audit *stubAudit) *UserAdmin {
	return NewUserAdmin(
		&stubCurrentUser{user: actor},
		service.NewAuthorizationService(),
		service.NewUserService(stubHasher{}),
		store,
		audit,
		zerolog.Nop(),
	)
}

// ---------------------------------------------------------------------------
// ReactivateUser
// ---------------------------------------------------------------------------

func TestReactivateUser_AdminReactivatesUser(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))
	audit := &stubAudit{}

	if err := newAdmin(&actor, store, audit).ReactivateUser(context.Background(), "alice"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if !store.get("alice").IsActive {
		t.Fatalf("expected alice to be active")
	}
	_, commits, _, updates := store.counts()
	if commits != 1 {
		t.Fatalf("expected exactly one commit, got %d", commits)
	}
	if updates != 1 {
		t.Fatalf("expected one row update, got %d", updates)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != domain.AuditUserReactivated {
		t.Fatalf("expected one reactivation audit entry, got %+v", audit.entries)
	}
	if audit.entries[0].ActorID != "a1" || audit.entries[0].TargetUsername != "alice" {
		t.Fatalf("unexpected audit entry: %+v", audit.entries[0])
	}
}

func TestReactivateUser_AdminCannotTouchPeerAdmin(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "b1", "bob01", domain.RoleAdmin, false))
	audit := &stubAudit{}

	err := newAdmin(&actor, store, audit).ReactivateUser(context.Background(), "bob01")
	if !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}

	if store.get("bob01").IsActive {
		t.Fatalf("bob must not be mutated")
	}
	_, commits, rollbacks, _ := store.counts()
	if commits != 0 {
		t.Fatalf("expected no commit, got %d", commits)
	}
	if rollbacks != 1 {
		t.Fatalf("expected rollback, got %d", rollbacks)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("expected no audit entry")
	}
}

func TestReactivateUser_SuperAdminTargetNotPermitted(t *testing.T) {
	actor := newUser(t, "s1", "root1", domain.RoleSuperAdmin, true)
	// Hypothetical: a super admin row that is inactive.
	store := newMemStore(newUser(t, "c1", "carol", domain.RoleSuperAdmin, false))

	err := newAdmin(&actor, store, &stubAudit{}).ReactivateUser(context.Background(), "carol")
	if !errors.Is(err, domain.ErrActivationChangeNotPermitted) {
		t.Fatalf("expected ErrActivationChangeNotPermitted, got %v", err)
	}
	if _, commits, _, _ := store.counts(); commits != 0 {
		t.Fatalf("expected no commit, got %d", commits)
	}
}

func TestReactivateUser_AlreadyActiveIsNoOp(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, true))
	audit := &stubAudit{}

	if err := newAdmin(&actor, store, audit).ReactivateUser(context.Background(), "alice"); err != nil {
		t.Fatalf("expected idempotent success, got %v", err)
	}
	if _, _, _, updates := store.counts(); updates != 0 {
		t.Fatalf("expected no row update, got %d", updates)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("no-op must not be audited")
	}
}

func TestReactivateUser_NoSession(t *testing.T) {
	store := newMemStore()
	admin := NewUserAdmin(
		&stubCurrentUser{err: domain.ErrAuthentication},
		service.NewAuthorizationService(),
		service.NewUserService(stubHasher{}),
		store,
		&stubAudit{},
		zerolog.Nop(),
	)

	err := admin.ReactivateUser(context.Background(), "alice")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if begins, _, _, _ := store.counts(); begins != 0 {
		t.Fatalf("expected no transaction, got %d", begins)
	}
}

func TestReactivateUser_PlainUserRejectedBeforeLookup(t *testing.T) {
	actor := newUser(t, "u9", "user09", domain.RoleUser, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))

	err := newAdmin(&actor, store, &stubAudit{}).ReactivateUser(context.Background(), "alice")
	if !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}
	if begins, _, _, _ := store.counts(); begins != 0 {
		t.Fatalf("coarse check must fail before any transaction, got %d begins", begins)
	}
}

func TestReactivateUser_InvalidUsername(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore()

	err := newAdmin(&actor, store, &stubAudit{}).ReactivateUser(context.Background(), "a!")
	if !errors.Is(err, domain.ErrDomainField) {
		t.Fatalf("expected ErrDomainField, got %v", err)
	}
	if begins, _, _, _ := store.counts(); begins != 0 {
		t.Fatalf("expected no transaction, got %d", begins)
	}
}

func TestReactivateUser_NotFound(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore()

	err := newAdmin(&actor, store, &stubAudit{}).ReactivateUser(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrUserNotFoundByUsername) {
		t.Fatalf("expected ErrUserNotFoundByUsername, got %v", err)
	}
	if _, commits, rollbacks, _ := store.counts(); commits != 0 || rollbacks != 1 {
		t.Fatalf("expected rollback only, got commits=%d rollbacks=%d", commits, rollbacks)
	}
}

func TestReactivateUser_UpdateFailureRollsBack(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))
	store.updateErr = errors.New("connection reset")

	err := newAdmin(&actor, store, &stubAudit{}).ReactivateUser(context.Background(), "alice")
	if err == nil {
		t.Fatalf("expected error")
	}
	if store.get("alice").IsActive {
		t.Fatalf("failed unit of work must leave no mutation")
	}
	if _, commits, rollbacks, _ := store.counts(); commits != 0 || rollbacks != 1 {
		t.Fatalf("expected rollback only, got commits=%d rollbacks=%d", commits, rollbacks)
	}
}

func TestReactivateUser_CancelledBeforeCommitRollsBack(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))
	audit := &stubAudit{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.onUpdate = cancel

	err := newAdmin(&actor, store, audit).ReactivateUser(ctx, "alice")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.get("alice").IsActive {
		t.Fatalf("cancelled request must leave no mutation")
	}
	if _, commits, rollbacks, updates := store.counts(); commits != 0 || rollbacks != 1 || updates != 0 {
		t.Fatalf("expected rollback only, got commits=%d rollbacks=%d updates=%d", commits, rollbacks, updates)
	}
	if len(audit.entries) != 0 {
		t.Fatalf("cancelled request must not be audited")
	}
}

func TestMemTxCommitHonoursContext(t *testing.T) {
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))
	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	u, err := tx.Users().ReadByUsername(context.Background(), mustUsername(t, "alice"), true)
	if err != nil || u == nil {
		t.Fatalf("read: %v, %v", u, err)
	}
	u.IsActive = true
	if err := tx.Users().Update(context.Background(), u); err != nil {
		t.Fatalf("update: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tx.Commit(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := tx.Rollback(context.Background()); err != nil {
		t.Fatalf("rollback after a failed commit must be a no-op: %v", err)
	}
	if store.get("alice").IsActive {
		t.Fatalf("failed commit must not apply staged changes")
	}
}

func TestReactivateUser_AuditFailureDoesNotFail(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))

	err := newAdmin(&actor, store, &stubAudit{err: errors.New("mongo down")}).ReactivateUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected success despite audit failure, got %v", err)
	}
	if !store.get("alice").IsActive {
		t.Fatalf("expected alice to be active")
	}
}

func TestReactivateUser_ConcurrentSameUser(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, false))
	audit := &stubAudit{}
	admin := newAdmin(&actor, store, audit)

	const callers = 2
	start := make(chan struct{})
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- admin.ReactivateUser(context.Background(), "alice")
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("expected both calls to succeed idempotently, got %v", err)
		}
	}
	if !store.get("alice").IsActive {
		t.Fatalf("expected alice to be active")
	}
	_, commits, _, updates := store.counts()
	if updates != 1 {
		t.Fatalf("expected exactly one state transition, got %d", updates)
	}
	if commits != callers {
		t.Fatalf("expected %d commits, got %d", callers, commits)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
}

// ---------------------------------------------------------------------------
// DeactivateUser
// ---------------------------------------------------------------------------

func TestDeactivateUser(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, true))

	if err := newAdmin(&actor, store, &stubAudit{}).DeactivateUser(context.Background(), "alice"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if store.get("alice").IsActive {
		t.Fatalf("expected alice to be inactive")
	}
}

func TestDeactivateUser_SuperAdminExempt(t *testing.T) {
	actor := newUser(t, "s1", "root1", domain.RoleSuperAdmin, true)
	store := newMemStore(newUser(t, "s2", "root2", domain.RoleSuperAdmin, true))

	err := newAdmin(&actor, store, &stubAudit{}).DeactivateUser(context.Background(), "root2")
	if !errors.Is(err, domain.ErrActivationChangeNotPermitted) {
		t.Fatalf("expected ErrActivationChangeNotPermitted, got %v", err)
	}
	if !store.get("root2").IsActive {
		t.Fatalf("super admin must stay active")
	}
}

// ---------------------------------------------------------------------------
// GrantAdmin / RevokeAdmin
// ---------------------------------------------------------------------------

func TestGrantAdmin_RequiresSuperAdmin(t *testing.T) {
	actor := newUser(t, "a1", "admin01", domain.RoleAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, true))

	err := newAdmin(&actor, store, &stubAudit{}).GrantAdmin(context.Background(), "alice")
	if !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}
	if begins, _, _, _ := store.counts(); begins != 0 {
		t.Fatalf("expected no transaction, got %d", begins)
	}
}

func TestGrantAndRevokeAdmin(t *testing.T) {
	actor := newUser(t, "s1", "root1", domain.RoleSuperAdmin, true)
	store := newMemStore(newUser(t, "u1", "alice", domain.RoleUser, true))
	admin := newAdmin(&actor, store, &stubAudit{})

	if err := admin.GrantAdmin(context.Background(), "alice"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if store.get("alice").Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", store.get("alice").Role)
	}

	if err := admin.RevokeAdmin(context.Background(), "alice"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if store.get("alice").Role != domain.RoleUser {
		t.Fatalf("expected user role, got %s", store.get("alice").Role)
	}
}

func TestRevokeAdmin_SuperAdminTarget(t *testing.T) {
	actor := newUser(t, "s1", "root1", domain.RoleSuperAdmin, true)
	store := newMemStore(newUser(t, "s2", "root2", domain.RoleSuperAdmin, true))

	err := newAdmin(&actor, store, &stubAudit{}).RevokeAdmin(context.Background(), "root2")
	if !errors.Is(err, domain.ErrRoleChangeNotPermitted) {
		t.Fatalf("expected ErrRoleChangeNotPermitted, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// ChangePassword
// ---------------------------------------------------------------------------

func TestChangePassword_Self(t *testing.T) {
	actor := newUser(t, "u1", "alice", domain.RoleUser, true)
	store := newMemStore(actor)

	if err := newAdmin(&actor, store, &stubAudit{}).ChangePassword(context.Background(), "Alice", "n3w-secret"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got := string(store.get("alice").PasswordHash); got != "hashed:n3w-secret" {
		t.Fatalf("unexpected hash %q", got)
	}
}

func TestChangePassword_OtherRequiresRank(t *testing.T) {
	actor := newUser(t, "u1", "alice", domain.RoleUser, true)
	store := newMemStore(actor, newUser(t, "u2", "dave1", domain.RoleUser, true))

	err := newAdmin(&actor, store, &stubAudit{}).ChangePassword(context.Background(), "dave1", "n3w-secret")
	if !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}
	if got := string(store.get("dave1").PasswordHash); got != "hashed:original" {
		t.Fatalf("password must not change, got %q", got)
	}
}

func TestChangePassword_NoSessionBeforePasswordRules(t *testing.T) {
	store := newMemStore()
	admin := NewUserAdmin(
		&stubCurrentUser{err: domain.ErrAuthentication},
		service.NewAuthorizationService(),
		service.NewUserService(stubHasher{}),
		store,
		&stubAudit{},
		zerolog.Nop(),
	)

	err := admin.ChangePassword(context.Background(), "alice", "abc")
	if !errors.Is(err, domain.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if begins, _, _, _ := store.counts(); begins != 0 {
		t.Fatalf("expected no transaction, got %d", begins)
	}
}

func TestChangePassword_TooShort(t *testing.T) {
	actor := newUser(t, "u1", "alice", domain.RoleUser, true)
	store := newMemStore(actor)

	err := newAdmin(&actor, store, &stubAudit{}).ChangePassword(context.Background(), "alice", "abc")
	if !errors.Is(err, domain.ErrDomainField) {
		t.Fatalf("expected ErrDomainField, got %v", err)
	}
}
