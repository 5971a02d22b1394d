package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/disaster_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// UserBatchReader is the query the user loader batches into.
type UserBatchReader interface {
	GetByIds(ctx context.Context, ids []int) ([]*models.User, error)
}

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	userLoader *dataloader.Loader[int, *models.User]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(users UserBatchReader) *Loaders {
	userReader := &userReader{users: users}
	return &Loaders{
		userLoader: dataloader.NewBatchedLoader(userReader.getUsers, dataloader.WithWait[int, *models.User](time.Millisecond)),
	}
}

func LoaderMiddleware(users UserBatchReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(users)
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders, or nil outside LoaderMiddleware.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
