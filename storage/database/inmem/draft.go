package inmemdb

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/formationpro/fichepresence/core/attendance"
)

var ErrDuplicateID = errors.New("draft ID already exists")

type draftRepository struct {
	mu     sync.RWMutex
	drafts map[string]attendance.Draft
}

var _ attendance.DraftRepository = (*draftRepository)(nil)

func NewDraftRepository() attendance.DraftRepository {
	return &draftRepository{drafts: make(map[string]attendance.Draft)}
}

func (repo *draftRepository) CreateDraft(_ context.Context, draft attendance.Draft) (attendance.Draft, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if _, ok := repo.drafts[draft.ID]; ok {
		return attendance.Draft{}, ErrDuplicateID
	}
	repo.drafts[draft.ID] = copyDraft(draft)
	return draft, nil
}

func (repo *draftRepository) GetDraft(_ context.Context, id string) (attendance.Draft, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	draft, ok := repo.drafts[id]
	if !ok {
		return attendance.Draft{}, attendance.ErrDraftNotFound
	}
	return copyDraft(draft), nil
}

func (repo *draftRepository) UpdateDraft(_ context.Context, draft attendance.Draft) (attendance.Draft, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	old, ok := repo.drafts[draft.ID]
	if !ok {
		return attendance.Draft{}, attendance.ErrDraftNotFound
	}
	draft.CreatedAt = old.CreatedAt
	repo.drafts[draft.ID] = copyDraft(draft)
	return draft, nil
}

func (repo *draftRepository) DeleteDraft(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.drafts[id]; !ok {
		return attendance.ErrDraftNotFound
	}
	delete(repo.drafts, id)
	return nil
}

// copyDraft detaches the stored sheet from the caller's slices.
func copyDraft(d attendance.Draft) attendance.Draft {
	d.Sheet.Slots = append([]attendance.TimeSlot(nil), d.Sheet.Slots...)
	d.Sheet.Participants = append([]attendance.Participant(nil), d.Sheet.Participants...)
	return d
}
