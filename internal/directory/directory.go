// Package directory holds the user directory. Users are seeded once and only
// changed afterwards by the administrative verification workflow.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mentorlink/api/internal/collection"
	"mentorlink/api/internal/docstore"

	"github.com/rs/zerolog"
)

var ErrUserNotFound = errors.New("user not found")

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAlumni  Role = "ALUMNI"
	RoleAdmin   Role = "ADMIN"
	RoleFaculty Role = "FACULTY"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAlumni, RoleAdmin, RoleFaculty:
		return true
	default:
		return false
	}
}

// ParseRole accepts a role name in any case. "mentor" is an alias for
// ALUMNI, the role mentors are drawn from.
func ParseRole(s string) (Role, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "MENTOR" {
		return RoleAlumni, true
	}
	r := Role(name)
	return r, r.Valid()
}

type User struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Role       Role     `json:"role"`
	Avatar     string   `json:"avatar,omitempty"`
	Department string   `json:"department"`
	Location   string   `json:"location,omitempty"`
	Skills     []string `json:"skills"`
	IsVerified bool     `json:"isVerified"`
	TrustScore *int     `json:"trustScore,omitempty"`
}

// Verification is the outcome of a profile review applied by an admin.
type Verification struct {
	IsSuspicious    bool
	ConfidenceScore float64
}

// TrustScore converts a review into a 0..100 trust score. A suspicious
// verdict with high confidence yields a low score.
func (v Verification) TrustScore() int {
	confidence := v.ConfidenceScore
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	score := confidence
	if v.IsSuspicious {
		score = 100 - confidence
	}
	return int(score + 0.5)
}

type Directory struct {
	users *collection.Collection[User]
}

func New(store docstore.Store, policy collection.RetryPolicy, logger zerolog.Logger) *Directory {
	return &Directory{users: collection.New[User](store, "users", policy, logger)}
}

// Seed loads the initial directory if it has never been written.
func (d *Directory) Seed(ctx context.Context, users []User) (bool, error) {
	return d.users.Seed(ctx, users)
}

// List returns every user in directory order.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	snap, err := d.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Values(), nil
}

func (d *Directory) Get(ctx context.Context, userID string) (User, error) {
	users, err := d.List(ctx)
	if err != nil {
		return User{}, err
	}
	for _, user := range users {
		if user.ID == userID {
			return user, nil
		}
	}
	return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
}

// Contacts returns everybody except userID, ordered by name.
func (d *Directory) Contacts(ctx context.Context, userID string) ([]User, error) {
	users, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	contacts := make([]User, 0, len(users))
	for _, user := range users {
		if user.ID != userID {
			contacts = append(contacts, user)
		}
	}
	sort.SliceStable(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].Name) < strings.ToLower(contacts[j].Name)
	})
	return contacts, nil
}

// ByRole filters the directory, keeping directory order.
func (d *Directory) ByRole(ctx context.Context, role Role) ([]User, error) {
	users, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0)
	for _, user := range users {
		if user.Role == role {
			out = append(out, user)
		}
	}
	return out, nil
}

// ApplyVerification records the outcome of a profile review.
func (d *Directory) ApplyVerification(ctx context.Context, userID string, v Verification) (User, error) {
	var updated User
	_, err := d.users.Update(ctx, func(snap *collection.Snapshot[User]) error {
		for i := range snap.Items {
			if snap.Items[i].Value.ID != userID {
				continue
			}
			score := v.TrustScore()
			snap.Items[i].Value.TrustScore = &score
			snap.Items[i].Value.IsVerified = !v.IsSuspicious
			updated = snap.Items[i].Value
			return nil
		}
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}
