package domain

import "context"

type User struct {
	ID    int32  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UserEvent is the change notification published to subscribers after a
// persistence mutation succeeds. Action is one of "add", "update", "delete".
type UserEvent struct {
	User   User   `json:"user"`
	Action string `json:"action"`
}

const (
	UserActionAdd    = "add"
	UserActionUpdate = "update"
	UserActionDelete = "delete"
)

type UserRepository interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int32) (*User, error)
	Create(ctx context.Context, name, phone string) (*User, error)
	Update(ctx context.Context, id int32, name, phone string) (*User, error)
	Delete(ctx context.Context, id int32) error
}
