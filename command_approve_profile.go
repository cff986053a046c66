package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ApproveProfileMessage marks a profile as approved for marketplace access.
// Only admins issue this; the acting admin is recorded for auditing.
type ApproveProfileMessage struct {
	UserID  string `json:"user_id"`
	ActorID string `json:"actor_id"`
}

func (e ApproveProfileMessage) Type() string { return "profile.approve" }

type ApproveProfileHandler struct {
	repo RepositoryManager
	sink ActivitySink
}

// NewApproveProfileHandler wires the handler to its repositories.
func NewApproveProfileHandler(repo RepositoryManager, sink ActivitySink) *ApproveProfileHandler {
	return &ApproveProfileHandler{
		repo: repo,
		sink: normalizeActivitySink(sink),
	}
}

func (h *ApproveProfileHandler) Execute(ctx context.Context, event ApproveProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile approval",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ApproveProfileHandler) execute(ctx context.Context, event ApproveProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var approved *Profile
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Profiles().ApproveTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "could not approve profile")
		}
		approved = record
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile approval transaction failed")
	}

	if sinkErr := h.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventProfileApproved,
		Actor:      ActorRef{ID: event.ActorID, Type: "admin"},
		UserID:     approved.UserID.String(),
		Metadata:   map[string]any{"role": approved.Role},
		OccurredAt: time.Now(),
	}); sinkErr != nil {
		// Auditing is best effort.
		defLogger{}.Warn("activity sink record error: %v", sinkErr)
	}

	return nil
}
