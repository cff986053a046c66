package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterAccountMessage captures the attributes collected at registration.
// The role is stamped into the account metadata so session tokens can carry
// it as a claim, and a matching unapproved profile row is provisioned in
// the same transaction.
type RegisterAccountMessage struct {
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountHandler struct {
	repo RepositoryManager
}

// NewRegisterAccountHandler wires the handler to its repositories.
func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{repo: repo}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if _, ok := ParseRole(event.Role); !ok || !isRegistrableRole(event.Role) {
		return goerrors.New("role is not open for registration", goerrors.CategoryValidation).
			WithTextCode("INVALID_ROLE").
			WithMetadata(map[string]any{"role": event.Role})
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = event.Email
		account.AddMetadata("role", event.Role)
		account.AddMetadata("full_name", event.FullName)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		profile := &Profile{
			UserID:     account.ID,
			FullName:   event.FullName,
			Company:    event.Company,
			Phone:      event.Phone,
			Role:       event.Role,
			IsApproved: false,
		}

		if _, err = h.repo.Profiles().CreateTx(ctx, tx, profile); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	return nil
}

func isRegistrableRole(role string) bool {
	for _, r := range RegistrableRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Register adapts the handler to the AccountRegisterer contract consumed by
// the bundled session source.
func (h *RegisterAccountHandler) Register(ctx context.Context, req SignUpRequest) error {
	return h.Execute(ctx, RegisterAccountMessage{
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Role:      string(req.Role),
		Password:  req.Password,
		UseHashid: true,
	})
}

var _ AccountRegisterer = (*RegisterAccountHandler)(nil)
