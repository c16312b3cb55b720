package review

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"organlink/internal/utils"
	"organlink/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeState is the committed contents of the fake database.
type fakeState struct {
	applications map[string]types.Application
	users        map[string]types.User
}

func (s fakeState) clone() fakeState {
	out := fakeState{
		applications: make(map[string]types.Application, len(s.applications)),
		users:        make(map[string]types.User, len(s.users)),
	}
	for k, v := range s.applications {
		out.applications[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	return out
}

// fakeStore serializes transactions the way the row lock does and only
// publishes a transaction's writes when fn succeeds.
type fakeStore struct {
	mu    sync.Mutex
	state fakeState

	// beforeSave runs inside the transaction right before the status update.
	beforeSave func(tx *fakeTx)
	createErr  error
	commits    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: fakeState{
		applications: map[string]types.Application{},
		users:        map[string]types.User{},
	}}
}

func appKey(kind types.ApplicationKind, id string) string {
	return string(kind) + "/" + id
}

func (f *fakeStore) addApplication(app types.Application) {
	f.state.applications[appKey(app.Kind, app.ID)] = app
}

func (f *fakeStore) addUser(user types.User) {
	f.state.users[user.ID] = user
}

func (f *fakeStore) application(kind types.ApplicationKind, id string) types.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.applications[appKey(kind, id)]
}

func (f *fakeStore) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.users)
}

func (f *fakeStore) usersByEmail(email string) []types.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.User
	for _, u := range f.state.users {
		if strings.EqualFold(u.Email, email) {
			out = append(out, u)
		}
	}
	return out
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &fakeTx{store: f, state: f.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	f.state = tx.state
	f.commits++
	return nil
}

type fakeTx struct {
	store *fakeStore
	state fakeState
}

func (t *fakeTx) LockApplication(ctx context.Context, kind types.ApplicationKind, id string) (*types.Application, error) {
	app, ok := t.state.applications[appKey(kind, id)]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	return &app, nil
}

func (t *fakeTx) User(ctx context.Context, userID string) (*types.User, error) {
	user, ok := t.state.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return &user, nil
}

func (t *fakeTx) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	for _, u := range t.state.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (t *fakeTx) CreateUser(ctx context.Context, user *types.User) error {
	if t.store.createErr != nil {
		return t.store.createErr
	}
	for _, u := range t.state.users {
		if strings.EqualFold(u.Email, user.Email) {
			return types.ErrEmailTaken
		}
	}
	user.ID = "user-" + utils.NanoIDSize(6)
	t.state.users[user.ID] = *user
	return nil
}

func (t *fakeTx) SaveReview(ctx context.Context, application *types.Application) error {
	if t.store.beforeSave != nil {
		t.store.beforeSave(t)
	}
	key := appKey(application.Kind, application.ID)
	current, ok := t.state.applications[key]
	if !ok || current.Status != types.ApplicationStatusPending {
		return types.ErrApplicationReviewed
	}
	t.state.applications[key] = *application
	return nil
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []types.AuditEntry
}

func (f *fakeAuditor) Record(ctx context.Context, entry types.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

type fakeObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeObserver) ReviewDecided(kind, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, kind+":"+outcome)
}

var admin = &types.User{ID: "admin-1", Name: "Admin", Email: "admin@organlink.com", Role: types.RoleAdmin}

type fixture struct {
	store    *fakeStore
	auditor  *fakeAuditor
	observer *fakeObserver
	service  *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, _ := test.NewNullLogger()
	f := &fixture{
		store:    newFakeStore(),
		auditor:  &fakeAuditor{},
		observer: &fakeObserver{},
	}
	f.service = NewService(f.store, f.auditor, f.observer, logger)
	// bcrypt is slow and irrelevant to the workflow
	f.service.hashPassword = func(p string) (string, error) { return "hashed:" + p, nil }
	f.service.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func pendingDonor(id, email string) types.Application {
	return types.Application{
		ID:                id,
		Kind:              types.ApplicationKindDonor,
		Name:              "Asha Rao",
		Email:             email,
		Phone:             "+91 90000 00000",
		City:              "Mumbai",
		Country:           "India",
		BloodGroup:        "O+",
		OrganType:         "Kidney",
		PreferredHospital: utils.StringPtr("Lilavati Hospital"),
		Consent:           true,
		Status:            types.ApplicationStatusPending,
	}
}

func pendingRecipient(id, email string) types.Application {
	return types.Application{
		ID:         id,
		Kind:       types.ApplicationKindRecipient,
		Name:       "Rahul Mehta",
		Email:      email,
		Phone:      "+91 90000 00001",
		City:       "Pune",
		Country:    "India",
		BloodGroup: "A+",
		OrganType:  "Liver",
		Urgency:    utils.IntPtr(8),
		Hospital:   utils.StringPtr("Ruby Hall Clinic"),
		Status:     types.ApplicationStatusPending,
	}
}

func (f *fixture) review(kind types.ApplicationKind, id, decision string) (*types.ReviewResult, error) {
	return f.service.Review(context.Background(), Request{
		Kind:          kind,
		ApplicationID: id,
		Decision:      decision,
		Reviewer:      admin,
	})
}

func TestApproveWithNewEmailOnboardsUser(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingDonor("A1", "a@x.com"))

	result, err := f.review(types.ApplicationKindDonor, "A1", "approve")
	require.NoError(t, err)

	require.NotNil(t, result.Credentials)
	assert.Equal(t, "a@x.com", result.Credentials.Email)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), result.Credentials.Password)

	assert.Equal(t, types.ApplicationStatusApproved, result.Application.Status)
	require.NotNil(t, result.Application.ApprovedUser)
	require.NotNil(t, result.Application.ReviewedBy)
	assert.Equal(t, admin.ID, result.Application.ReviewedBy.ID)

	users := f.store.usersByEmail("a@x.com")
	require.Len(t, users, 1)
	user := users[0]
	assert.Equal(t, *result.Application.ApprovedUser, user.ID)
	assert.Equal(t, types.RoleDonor, user.Role)
	assert.True(t, user.MustChangePassword)
	assert.Equal(t, "hashed:"+result.Credentials.Password, user.PasswordHash)
	assert.Equal(t, "Lilavati Hospital", utils.PtrString(user.Organization))
	assert.Nil(t, user.Urgency)

	stored := f.store.application(types.ApplicationKindDonor, "A1")
	assert.Equal(t, types.ApplicationStatusApproved, stored.Status)
	assert.Equal(t, admin.ID, utils.PtrString(stored.ReviewedBy))
	assert.NotNil(t, stored.ReviewedAt)
}

func TestApproveRecipientCopiesUrgencyAndHospital(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingRecipient("R1", "r@x.com"))

	result, err := f.review(types.ApplicationKindRecipient, "R1", "approve")
	require.NoError(t, err)
	require.NotNil(t, result.Credentials)

	users := f.store.usersByEmail("r@x.com")
	require.Len(t, users, 1)
	assert.Equal(t, types.RoleRecipient, users[0].Role)
	assert.Equal(t, 8, utils.PtrInt(users[0].Urgency))
	assert.Equal(t, "Ruby Hall Clinic", utils.PtrString(users[0].Organization))
}

func TestApproveWithExistingEmailReusesUser(t *testing.T) {
	f := newFixture(t)
	f.store.addUser(types.User{ID: "existing", Name: "B", Email: "b@x.com", Role: types.RoleDonor})
	f.store.addApplication(pendingDonor("A2", "B@X.com"))

	result, err := f.review(types.ApplicationKindDonor, "A2", "approve")
	require.NoError(t, err)

	assert.Nil(t, result.Credentials)
	assert.Equal(t, "existing", utils.PtrString(result.Application.ApprovedUser))
	assert.Len(t, f.store.usersByEmail("b@x.com"), 1)
	assert.Equal(t, 1, f.store.userCount())
}

func TestApprovePrefersStoredApprovedUser(t *testing.T) {
	f := newFixture(t)
	f.store.addUser(types.User{ID: "linked", Email: "other@x.com", Role: types.RoleDonor})
	app := pendingDonor("A3", "c@x.com")
	app.ApprovedUser = utils.StringPtr("linked")
	f.store.addApplication(app)

	result, err := f.review(types.ApplicationKindDonor, "A3", "approve")
	require.NoError(t, err)

	assert.Nil(t, result.Credentials)
	assert.Equal(t, "linked", utils.PtrString(result.Application.ApprovedUser))
	assert.Equal(t, 1, f.store.userCount())
}

func TestRejectClearsApprovedUserAndCreatesNone(t *testing.T) {
	f := newFixture(t)
	app := pendingRecipient("R2", "d@x.com")
	app.ApprovedUser = utils.StringPtr("stale")
	f.store.addApplication(app)

	result, err := f.service.Review(context.Background(), Request{
		Kind:          types.ApplicationKindRecipient,
		ApplicationID: "R2",
		Decision:      "reject",
		Notes:         "  incomplete history ",
		Reviewer:      admin,
	})
	require.NoError(t, err)

	assert.Nil(t, result.Credentials)
	assert.Nil(t, result.Application.ApprovedUser)
	assert.Equal(t, types.ApplicationStatusRejected, result.Application.Status)
	assert.Equal(t, "incomplete history", utils.PtrString(result.Application.ReviewNotes))
	assert.Equal(t, 0, f.store.userCount())

	stored := f.store.application(types.ApplicationKindRecipient, "R2")
	assert.Nil(t, stored.ApprovedUser)
}

func TestSecondReviewConflicts(t *testing.T) {
	for _, second := range []string{"approve", "reject"} {
		t.Run(second, func(t *testing.T) {
			f := newFixture(t)
			f.store.addApplication(pendingDonor("A1", "a@x.com"))

			_, err := f.review(types.ApplicationKindDonor, "A1", "approve")
			require.NoError(t, err)
			before := f.store.application(types.ApplicationKindDonor, "A1")

			_, err = f.review(types.ApplicationKindDonor, "A1", second)
			assert.ErrorIs(t, err, types.ErrApplicationReviewed)

			assert.Equal(t, before, f.store.application(types.ApplicationKindDonor, "A1"))
			assert.Equal(t, 1, f.store.userCount())
			assert.Len(t, f.auditor.entries, 1)
		})
	}
}

func TestPreconditionOrder(t *testing.T) {
	f := newFixture(t)

	// decision is checked before the application is looked up
	_, err := f.review(types.ApplicationKindDonor, "missing", "maybe")
	assert.ErrorIs(t, err, types.ErrInvalidDecision)

	f.store.addApplication(pendingDonor("A0", "z@x.com"))
	_, err = f.review(types.ApplicationKindDonor, "A0", " approve ")
	assert.ErrorIs(t, err, types.ErrInvalidDecision, "decisions are matched exactly")

	_, err = f.review(types.ApplicationKindDonor, "missing", "approve")
	assert.ErrorIs(t, err, types.ErrApplicationNotFound)

	f.store.addApplication(pendingDonor("A1", "a@x.com"))
	_, err = f.review(types.ApplicationKindRecipient, "A1", "approve")
	assert.ErrorIs(t, err, types.ErrApplicationNotFound, "kinds do not share ids")

	assert.Empty(t, f.auditor.entries)
	assert.Equal(t, 0, f.store.commits)
}

func TestAlreadyTerminalStatusConflicts(t *testing.T) {
	f := newFixture(t)
	app := pendingDonor("A1", "a@x.com")
	app.Status = types.ApplicationStatusContacted
	f.store.addApplication(app)

	_, err := f.review(types.ApplicationKindDonor, "A1", "reject")
	assert.ErrorIs(t, err, types.ErrApplicationReviewed)
}

func TestLosingCompareAndSetRollsBackUser(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingDonor("A1", "a@x.com"))

	// another reviewer commits between our read and our update
	f.store.beforeSave = func(tx *fakeTx) {
		key := appKey(types.ApplicationKindDonor, "A1")
		app := tx.state.applications[key]
		app.Status = types.ApplicationStatusRejected
		tx.state.applications[key] = app
	}

	result, err := f.review(types.ApplicationKindDonor, "A1", "approve")
	assert.ErrorIs(t, err, types.ErrApplicationReviewed)
	assert.Nil(t, result)

	assert.Equal(t, 0, f.store.userCount())
	assert.Equal(t, types.ApplicationStatusPending, f.store.application(types.ApplicationKindDonor, "A1").Status)
	assert.Empty(t, f.auditor.entries)
}

func TestDuplicateEmailInsertIsConflict(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingDonor("A1", "a@x.com"))
	f.store.createErr = types.ErrEmailTaken

	_, err := f.review(types.ApplicationKindDonor, "A1", "approve")
	assert.ErrorIs(t, err, types.ErrApplicationReviewed)
	assert.ErrorIs(t, err, types.ErrEmailTaken)
	assert.Equal(t, types.ApplicationStatusPending, f.store.application(types.ApplicationKindDonor, "A1").Status)
}

func TestStoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingDonor("A1", "a@x.com"))
	f.store.createErr = errors.New("connection reset")

	_, err := f.review(types.ApplicationKindDonor, "A1", "approve")
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrApplicationReviewed)
	assert.Equal(t, []string{"donor:error"}, f.observer.outcomes)
}

func TestSuccessfulReviewAuditsOnce(t *testing.T) {
	cases := []struct {
		kind     types.ApplicationKind
		app      types.Application
		decision string
		action   string
	}{
		{types.ApplicationKindDonor, pendingDonor("A1", "a@x.com"), "approve", "admin.donor_application_approved"},
		{types.ApplicationKindDonor, pendingDonor("A1", "a@x.com"), "reject", "admin.donor_application_rejected"},
		{types.ApplicationKindRecipient, pendingRecipient("R1", "r@x.com"), "approve", "admin.recipient_application_approved"},
		{types.ApplicationKindRecipient, pendingRecipient("R1", "r@x.com"), "reject", "admin.recipient_application_rejected"},
	}

	for _, tc := range cases {
		t.Run(tc.action, func(t *testing.T) {
			f := newFixture(t)
			f.store.addApplication(tc.app)

			_, err := f.review(tc.kind, tc.app.ID, tc.decision)
			require.NoError(t, err)

			require.Len(t, f.auditor.entries, 1)
			entry := f.auditor.entries[0]
			assert.Equal(t, tc.action, entry.Action)
			assert.Equal(t, admin.ID, entry.Actor.ID)
			assert.Equal(t, tc.kind.EntityType(), entry.Entity.Type)
			assert.Equal(t, tc.app.ID, entry.Entity.ID)
			assert.Equal(t, tc.decision, entry.Metadata["decision"])
			assert.Equal(t, tc.app.Email, entry.Metadata["email"])
		})
	}
}

func TestConcurrentReviewsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingDonor("A1", "a@x.com"))

	const reviewers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := range reviewers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := "approve"
			if i%2 == 1 {
				decision = "reject"
			}
			_, err := f.review(types.ApplicationKindDonor, "A1", decision)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, types.ErrApplicationReviewed):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, reviewers-1, conflicts)
	assert.LessOrEqual(t, f.store.userCount(), 1)
	assert.Len(t, f.auditor.entries, 1)
}

func TestOutcomesObserved(t *testing.T) {
	f := newFixture(t)
	f.store.addApplication(pendingDonor("A1", "a@x.com"))

	_, _ = f.review(types.ApplicationKindDonor, "A1", "nope")
	_, _ = f.review(types.ApplicationKindDonor, "A9", "approve")
	_, _ = f.review(types.ApplicationKindDonor, "A1", "approve")
	_, _ = f.review(types.ApplicationKindDonor, "A1", "approve")

	assert.Equal(t, []string{
		"donor:invalid",
		"donor:not_found",
		"donor:approved",
		"donor:conflict",
	}, f.observer.outcomes)
}

func TestNewUserFromApplication(t *testing.T) {
	donor := pendingDonor("A1", " Mixed@Case.com ")
	user := NewUserFromApplication(&donor)
	assert.Equal(t, "mixed@case.com", user.Email)
	assert.Equal(t, types.RoleDonor, user.Role)
	assert.Nil(t, user.Urgency)

	recipient := pendingRecipient("R1", "r@x.com")
	recipient.Hospital = nil
	user = NewUserFromApplication(&recipient)
	assert.Equal(t, types.RoleRecipient, user.Role)
	assert.Nil(t, user.Organization)
	assert.Equal(t, 8, utils.PtrInt(user.Urgency))
}
