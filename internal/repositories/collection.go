// file: internal/repositories/collection.go
package repositories

import (
	"fmt"

	"go.uber.org/zap"

	"promptvault/internal/database"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	// Activity store
	User    UserRepository
	Prompt  PromptRepository
	Comment CommentRepository
	Follow  FollowRepository

	// Badge engine
	Activity ActivityReader
	Stats    StatsRepository
	Badge    BadgeRepository

	db *database.Manager
}

// NewCollection wires every postgres repository to db.
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		User:     NewUserRepository(db, logger),
		Prompt:   NewPromptRepository(db, logger),
		Comment:  NewCommentRepository(db, logger),
		Follow:   NewFollowRepository(db, logger),
		Activity: NewActivityRepository(db, logger),
		Stats:    NewStatsRepository(db, logger),
		Badge:    NewBadgeRepository(db, logger),
		db:       db,
	}

	logger.Info("Repository collection initialized successfully")
	return collection, nil
}

// Close releases the underlying database, if any.
func (c *Collection) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
