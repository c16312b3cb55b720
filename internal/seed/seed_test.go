package seed

import (
	"context"
	"testing"

	"organlink/internal/auth"
	"organlink/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	byEmail map[string]*types.User
}

func (m *memUsers) UserByEmail(ctx context.Context, email string) (*types.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, types.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, user *types.User) error {
	user.ID = "id-" + user.Email
	m.byEmail[user.Email] = user
	return nil
}

type memRequests struct {
	created  []*types.OrganRequest
	statuses []types.OrganRequestStatus
}

func (m *memRequests) Create(ctx context.Context, request *types.OrganRequest) (*types.Approval, error) {
	request.ID = "req-1"
	m.created = append(m.created, request)
	return &types.Approval{}, nil
}

func (m *memRequests) UpdateStatus(ctx context.Context, id string, status types.OrganRequestStatus) (*types.OrganRequest, error) {
	m.statuses = append(m.statuses, status)
	return &types.OrganRequest{ID: id, Status: status}, nil
}

type memTransports struct {
	created []*types.Transport
}

func (m *memTransports) Create(ctx context.Context, transport *types.Transport) error {
	m.created = append(m.created, transport)
	return nil
}

func TestSeedUsersCreatesOnePerRole(t *testing.T) {
	logger, hook := test.NewNullLogger()
	repo := &memUsers{byEmail: map[string]*types.User{}}

	seeded, err := SeedUsers(context.Background(), repo, logger)
	require.NoError(t, err)

	require.Len(t, seeded, len(types.AllRoles))
	for _, role := range types.AllRoles {
		require.Contains(t, seeded, role)
		assert.Equal(t, role, seeded[role].Role)
	}

	recipient := seeded[types.RoleRecipient]
	require.NotNil(t, recipient.Urgency)
	assert.Equal(t, 8, *recipient.Urgency)
	assert.Nil(t, seeded[types.RoleAdmin].Urgency)
	assert.NoError(t, auth.VerifyPassword(seeded[types.RoleAdmin].PasswordHash, "admin123"))
	assert.Equal(t, "default users seeded", hook.LastEntry().Message)
}

func TestSeedUsersKeepsExistingAccounts(t *testing.T) {
	logger, _ := test.NewNullLogger()
	existing := &types.User{ID: "kept", Email: "admin@organlink.com", Role: types.RoleAdmin}
	repo := &memUsers{byEmail: map[string]*types.User{existing.Email: existing}}

	seeded, err := SeedUsers(context.Background(), repo, logger)
	require.NoError(t, err)

	assert.Same(t, existing, seeded[types.RoleAdmin])
	assert.Len(t, repo.byEmail, len(DefaultUsers))
}

func TestSeedDemoShipment(t *testing.T) {
	logger, _ := test.NewNullLogger()
	users := map[types.Role]*types.User{
		types.RoleRecipient: {ID: "r-1", Name: "Jane Recipient"},
		types.RoleDoctor:    {ID: "d-1", Name: "Dr. Sarah Mitchell"},
	}
	requests := &memRequests{}
	transports := &memTransports{}

	require.NoError(t, SeedDemoShipment(context.Background(), requests, transports, users, logger))

	require.Len(t, requests.created, 1)
	assert.Equal(t, "r-1", requests.created[0].RecipientID)
	assert.Equal(t, []types.OrganRequestStatus{types.OrganRequestStatusInTransit}, requests.statuses)
	require.Len(t, transports.created, 1)
	assert.Equal(t, "req-1", transports.created[0].OrganRequestID)
}

func TestSeedDemoShipmentNeedsUsers(t *testing.T) {
	logger, _ := test.NewNullLogger()

	err := SeedDemoShipment(context.Background(), &memRequests{}, &memTransports{}, nil, logger)

	assert.Error(t, err)
}
