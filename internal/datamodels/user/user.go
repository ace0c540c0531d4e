package user

import (
	"context"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleAdmin  Role = "Administrador"
	RoleClient Role = "Cliente"
)

// Valid 角色是否合法
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// State 账户状态
type State string

const (
	StateActive   State = "Activo"
	StateInactive State = "Inactivo"
)

// User 用户模型
type User struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	FirstName      string    `gorm:"size:100;not null" json:"first_name"`
	LastName       string    `gorm:"size:100;not null" json:"last_name"`
	SecondLastName string    `gorm:"size:100" json:"second_last_name"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Email          string    `gorm:"uniqueIndex;size:150;not null" json:"email"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"` // bcrypt
	Role           Role      `gorm:"size:32;index;not null" json:"role"`
	State          State     `gorm:"size:32;not null" json:"state"`
	Active         bool      `gorm:"not null" json:"active"`
	RegisteredAt   time.Time `json:"registered_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName 报表中显示的客户名
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListAll(ctx context.Context) ([]*User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	SetActive(ctx context.Context, id int64, active bool) error
}
