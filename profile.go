package gotable

import (
	"context"
	"time"
)

// Profile is a persisted view configuration of a table. A profile is either
// the implicit default of its owner (IsDefault, no label) or a named view
// saved by the user. Profiles without a user are shared by all users of a
// global table.
//
// At most one default profile exists per (user, table) and per table among
// the shared ones. Both are partial unique indexes.
type Profile struct {
	ID            uint    `gorm:"primaryKey"`
	UserID        *uint   `gorm:"uniqueIndex:idx_tableview_profile_user_default,priority:1,where:is_default = true"`
	TableViewName string  `gorm:"column:tableview_name;size:255;not null;uniqueIndex:idx_tableview_profile_user_default,priority:2,where:is_default = true;uniqueIndex:idx_tableview_profile_global_default,where:is_default = true AND user_id IS NULL"`
	Label         *string `gorm:"size:255"`
	IsDefault     bool    `gorm:"not null;default:false"`
	Dump          string  `gorm:"type:text;not null;default:''"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Profile) TableName() string {
	return "tableview_profile"
}

// State decodes the stored state, nil when there is none or it is corrupt.
func (p *Profile) State() *State {
	return LoadState(p.Dump)
}

// GetLabel returns the label or an empty string.
func (p *Profile) GetLabel() string {
	if p.Label == nil {
		return ""
	}

	return *p.Label
}

// ProfileOwner selects profiles by owner.
type ProfileOwner int

const (
	// OwnerAny matches every profile.
	OwnerAny ProfileOwner = iota
	// OwnerGlobal matches the profiles shared by all users.
	OwnerGlobal
	// OwnerUser matches the profiles of ProfileQuery.UserID.
	OwnerUser
)

// ProfileQuery selects profiles. Zero fields match everything.
type ProfileQuery struct {
	ID            uint
	TableViewName string
	Owner         ProfileOwner
	UserID        uint
	IsDefault     *bool
	Label         *string
}

// Matches reports whether p is selected by the query.
func (q ProfileQuery) Matches(p *Profile) bool {
	switch {
	case q.ID != 0 && p.ID != q.ID:
		return false
	case q.TableViewName != "" && p.TableViewName != q.TableViewName:
		return false
	case q.Owner == OwnerGlobal && p.UserID != nil:
		return false
	case q.Owner == OwnerUser && (p.UserID == nil || *p.UserID != q.UserID):
		return false
	case q.IsDefault != nil && p.IsDefault != *q.IsDefault:
		return false
	case q.Label != nil && (p.Label == nil || *p.Label != *q.Label):
		return false
	}

	return true
}

// newProfile returns a profile populated from the query fields.
func (q ProfileQuery) newProfile() Profile {
	p := Profile{
		TableViewName: q.TableViewName,
		Label:         q.Label,
	}

	if q.Owner == OwnerUser {
		userID := q.UserID
		p.UserID = &userID
	}

	if q.IsDefault != nil {
		p.IsDefault = *q.IsDefault
	}

	return p
}

// ProfileStore persists profiles.
type ProfileStore interface {
	// Get returns the profile selected by q, nil when there is none.
	Get(ctx context.Context, q ProfileQuery) (*Profile, error)
	// GetOrCreate returns the profile selected by q or creates it from the
	// query fields and dump. created reports which happened. Creating a
	// second default profile fails with ErrDuplicateDefaultProfile.
	GetOrCreate(ctx context.Context, q ProfileQuery, dump string) (p *Profile, created bool, err error)
	Save(ctx context.Context, p *Profile) error
	// List returns the selected profiles ordered by label.
	List(ctx context.Context, q ProfileQuery) ([]Profile, error)
	// Delete removes the selected profiles and returns how many were removed.
	Delete(ctx context.Context, q ProfileQuery) (int64, error)
}
