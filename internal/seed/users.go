package seed

import (
	"context"
	"errors"
	"fmt"

	"organlink/internal/auth"
	"organlink/internal/utils"
	"organlink/pkg/types"

	"github.com/sirupsen/logrus"
)

type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
}

type userSeed struct {
	Name         string
	Email        string
	Password     string
	Role         types.Role
	Phone        string
	Organization string
	City         string
	Country      string
	BloodGroup   string
	OrganType    string
	Urgency      int
}

// DefaultUsers are the demo accounts, one per role.
var DefaultUsers = []userSeed{
	{Name: "Admin User", Email: "admin@organlink.com", Password: "admin123", Role: types.RoleAdmin, Phone: "+1-555-0100", Organization: "OrganLink HQ", City: "San Francisco", Country: "USA"},
	{Name: "Dr. Sarah Mitchell", Email: "doctor@hospital.com", Password: "doctor123", Role: types.RoleDoctor, Phone: "+1-555-0101", Organization: "General Hospital", City: "Boston", Country: "USA"},
	{Name: "John Donor", Email: "donor@example.com", Password: "donor123", Role: types.RoleDonor, Phone: "+1-555-0102", Organization: "Community Center", City: "Seattle", Country: "USA", BloodGroup: "O+", OrganType: "Kidney"},
	{Name: "Jane Recipient", Email: "recipient@example.com", Password: "recipient123", Role: types.RoleRecipient, Phone: "+1-555-0103", Organization: "City Hospital", City: "Portland", Country: "USA", BloodGroup: "O+", OrganType: "Kidney", Urgency: 8},
}

func (u userSeed) user(hash string) *types.User {
	user := &types.User{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: hash,
		Role:         u.Role,
		Phone:        utils.NonEmptyStringPtr(u.Phone),
		Organization: utils.NonEmptyStringPtr(u.Organization),
		City:         utils.NonEmptyStringPtr(u.City),
		Country:      utils.NonEmptyStringPtr(u.Country),
		BloodGroup:   utils.NonEmptyStringPtr(u.BloodGroup),
		OrganType:    utils.NonEmptyStringPtr(u.OrganType),
	}
	if u.Urgency > 0 {
		user.Urgency = utils.IntPtr(u.Urgency)
	}
	return user
}

// SeedUsers creates any default account whose email is not taken yet and
// returns the accounts by role. Existing accounts are left untouched.
func SeedUsers(ctx context.Context, repo UserStore, logger *logrus.Logger) (map[types.Role]*types.User, error) {
	seeded := make(map[types.Role]*types.User, len(DefaultUsers))
	created := 0

	for _, seed := range DefaultUsers {
		existing, err := repo.UserByEmail(ctx, seed.Email)
		if err == nil {
			seeded[seed.Role] = existing
			continue
		}
		if !errors.Is(err, types.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to fetch seed user %s: %w", seed.Email, err)
		}

		hash, err := auth.HashPassword(seed.Password)
		if err != nil {
			return nil, err
		}

		user := seed.user(hash)
		if err := repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create seed user %s: %w", seed.Email, err)
		}
		seeded[seed.Role] = user
		created++

		logger.WithFields(logrus.Fields{
			"email":    seed.Email,
			"password": seed.Password,
			"role":     seed.Role,
		}).Info("seeded user")
	}

	logger.WithField("created", created).Info("default users seeded")
	return seeded, nil
}
