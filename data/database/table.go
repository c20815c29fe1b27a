package database

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type Table interface {
	GetTableName() string
	Collection() *mongo.Collection
}

// Indexed tables declare the indexes their queries rely on.
type Indexed interface {
	Table
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes creates indexes for every table that declares them.
func EnsureIndexes(ctx context.Context, tables ...Table) error {
	for _, t := range tables {
		ix, ok := t.(Indexed)
		if !ok {
			continue
		}
		if err := ix.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
