package repository

import (
	"context"

	"github.com/d1337/sandboxd/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type ExecutionRepository interface {
	Create(ctx context.Context, rec *model.ExecutionRecord) error
	GetByID(ctx context.Context, id string) (*model.ExecutionRecord, error)
	List(ctx context.Context, opts ListOptions) ([]model.ExecutionRecord, error)
}
