// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID              string     `db:"id"`
	Email           string     `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	Name            string     `db:"name"`
	Role            string     `db:"role"`
	Plan            string     `db:"plan"`
	SubActive       bool       `db:"subscription_active"`
	SubGifted       bool       `db:"subscription_gifted"`
	StripeCustomer  string     `db:"stripe_customer_id"`
	ReferralCount   int        `db:"referral_count"`
	CommissionTotal float64    `db:"commission_total"`
	TokenVersion    int        `db:"token_version"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	DeletedAt       *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasActiveSubscription reports whether paid-plan features are usable.
// Free-plan users are always "active"; paid plans require the flag.
func (u *User) HasActiveSubscription() bool {
	if u.Plan == PlanFree {
		return true
	}
	return u.SubActive
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
	PlanEmpire  = "empire"
)

func ValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanStarter, PlanPro, PlanEmpire:
		return true
	}
	return false
}
