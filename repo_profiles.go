package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the store for marketplace profiles. GetByUserID distinguishes
// a missing row (nil, nil) from a transport failure so the state machine
// can keep its last known good profile across outages.
type Profiles interface {
	repository.Repository[*Profile]

	GetByUserID(ctx context.Context, userID string) (*Profile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*Profile, error)

	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)

	Approve(ctx context.Context, userID string) (*Profile, error)
	ApproveTx(ctx context.Context, tx bun.IDB, userID string) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

// NewProfilesRepository creates the bun backed profiles repository.
func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.UserID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.UserID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (p *profiles) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	return p.GetByUserIDTx(ctx, p.db, userID)
}

func (p *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID string) (*Profile, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid user id").
			WithMetadata(map[string]any{"user_id": userID})
	}

	record := &Profile{}
	err = tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", uid).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

func (p *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return p.CreateTx(ctx, p.db, record, criteria...)
}

func (p *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	if record != nil && record.Role == "" {
		record.Role = RoleUnknown
	}
	return p.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (p *profiles) Approve(ctx context.Context, userID string) (*Profile, error) {
	return p.ApproveTx(ctx, p.db, userID)
}

// ApproveTx flips is_approved and stamps approved_at. Approval is sticky:
// re-approving an approved profile keeps the original timestamp.
func (p *profiles) ApproveTx(ctx context.Context, tx bun.IDB, userID string) (*Profile, error) {
	record, err := p.GetByUserIDTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"user_id": userID})
	}

	if record.IsApproved {
		return record, nil
	}

	now := time.Now()
	record.IsApproved = true
	record.ApprovedAt = &now

	return p.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.UserID.String()))
}

// StoreProfileAdapter exposes a Profiles repository through the ProfileStore
// contract consumed by the state machine.
type StoreProfileAdapter struct {
	profiles Profiles
}

// NewStoreProfileAdapter wraps a Profiles repository as a ProfileStore.
func NewStoreProfileAdapter(profiles Profiles) *StoreProfileAdapter {
	return &StoreProfileAdapter{profiles: profiles}
}

// GetProfile satisfies the ProfileStore interface.
func (s *StoreProfileAdapter) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return s.profiles.GetByUserID(ctx, userID)
}

var _ ProfileStore = (*StoreProfileAdapter)(nil)
