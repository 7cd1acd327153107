package users

import (
	"context"
	"sort"
	"sync"

	"github.com/tranqh/studymate/internal/common"
	"github.com/tranqh/studymate/internal/server/models"
)

// MemoryRepository is a mutex-guarded in-memory user store. The critical
// sections cover single map operations only; password hashing and other
// CPU-bound work belong to the caller, outside the lock.
type MemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUserName map[string]string
	byEmail    map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:       make(map[string]*models.User),
		byUserName: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUserName[user.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	stored := *user
	r.byID[stored.ID] = &stored
	r.byUserName[stored.UserName] = stored.ID
	r.byEmail[stored.Email] = stored.ID

	return copyUser(&stored), nil
}

func (r *MemoryRepository) GetByUserName(ctx context.Context, userName string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUserName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(r.byID[id]), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(user), nil
}

func (r *MemoryRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[user.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}

	// uniqueness must hold across renames too
	if user.UserName != prev.UserName {
		if _, taken := r.byUserName[user.UserName]; taken {
			return nil, common.ErrorAlreadyExists
		}
	}
	if user.Email != prev.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return nil, common.ErrorAlreadyExists
		}
	}

	delete(r.byUserName, prev.UserName)
	delete(r.byEmail, prev.Email)

	stored := *user
	r.byID[stored.ID] = &stored
	r.byUserName[stored.UserName] = stored.ID
	r.byEmail[stored.Email] = stored.ID

	return copyUser(&stored), nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		result = append(result, copyUser(u))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}
