package usecase

import (
	"context"
	"fmt"

	"github.com/mikan-dev/splice/internal/domain"
)

// InitRepoOutput contains the result of initialization.
type InitRepoOutput struct {
	SpliceDir string // State directory that was created
}

// InitRepo is the use case for initializing splice state in a repository.
type InitRepo struct {
	store     domain.StoreInitializer
	logger    domain.Logger
	spliceDir string
}

// NewInitRepo creates a new InitRepo use case.
func NewInitRepo(store domain.StoreInitializer, logger domain.Logger, spliceDir string) *InitRepo {
	return &InitRepo{store: store, logger: logger, spliceDir: spliceDir}
}

// Execute initializes the task store.
func (uc *InitRepo) Execute(_ context.Context) (*InitRepoOutput, error) {
	if err := uc.store.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info("", "init", "initialized "+uc.spliceDir)
	}
	return &InitRepoOutput{SpliceDir: uc.spliceDir}, nil
}
