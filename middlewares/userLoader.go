package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/disaster_backend/models"
)

type userReader struct {
	users UserBatchReader
}

// getUsers answers in key order; an unknown id yields a placeholder user rather than an error
// so one deleted account does not break a whole report listing.
func (r *userReader) getUsers(ctx context.Context, ids []int) []*dataloader.Result[*models.User] {
	users, err := r.users.GetByIds(ctx, ids)
	if err != nil {
		return handleError[*models.User](len(ids), err)
	}
	resultMap := make(map[int]*models.User, len(users))
	for _, u := range users {
		resultMap[u.ID] = u
	}
	loaderResults := make([]*dataloader.Result[*models.User], 0, len(ids))
	for _, id := range ids {
		u, ok := resultMap[id]
		if !ok {
			u = &models.User{ID: id, Name: "Unknown user"}
		}
		loaderResults = append(loaderResults, &dataloader.Result[*models.User]{Data: u})
	}
	return loaderResults
}

func GetUser(ctx context.Context, id int) (*models.User, error) {
	loaders := For(ctx)
	return loaders.userLoader.Load(ctx, id)()
}

func GetUsers(ctx context.Context, ids []int) ([]*models.User, []error) {
	loaders := For(ctx)
	return loaders.userLoader.LoadMany(ctx, ids)()
}
