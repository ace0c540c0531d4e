package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/example/embutidos/internal/auth"
	"github.com/example/embutidos/internal/datamodels/user"
)

// RegisterInput 注册表单
type RegisterInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	SecondLastName  string `json:"second_last_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UserUpdate 后台编辑用户，不含密码
type UserUpdate struct {
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	SecondLastName string     `json:"second_last_name"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Role           user.Role  `json:"role"`
	State          user.State `json:"state"`
}

// LoginResult 登录成功返回 token 与用户
type LoginResult struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type UserService struct {
	repo user.Repository
	auth *auth.Authenticator
	cost int
}

func NewUserService(repo user.Repository, a *auth.Authenticator) *UserService {
	return &UserService{repo: repo, auth: a, cost: bcrypt.DefaultCost}
}

func (s *UserService) hashPassword(raw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), s.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func validateProfile(errs fieldErrors, first, last, email, phone string) {
	if strings.TrimSpace(first) == "" {
		errs.add("first_name", "requerido")
	}
	if strings.TrimSpace(last) == "" {
		errs.add("last_name", "requerido")
	}
	if email == "" {
		errs.add("email", "requerido")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.add("email", "formato inválido")
	}
	if len(phone) > 20 {
		errs.add("phone", "máximo 20 caracteres")
	}
}

// Register 注册为客户角色，邮箱唯一
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	in.Email = normalizeEmail(in.Email)
	errs := fieldErrors{}
	validateProfile(errs, in.FirstName, in.LastName, in.Email, in.Phone)
	if len(in.Password) < 6 {
		errs.add("password", "mínimo 6 caracteres")
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		errs.add("confirm_password", "las contraseñas no coinciden")
	}
	if _, bad := errs["email"]; !bad {
		exists, err := s.repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			errs.add("email", "ya registrado")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &user.User{
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		SecondLastName: strings.TrimSpace(in.SecondLastName),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          in.Email,
		PasswordHash:   hash,
		Role:           user.RoleClient,
		State:          user.StateActive,
		Active:         true,
		RegisteredAt:   now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 校验密码并签发 JWT；停用账户不可登录
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if !u.Active {
		return nil, fmt.Errorf("account disabled: %w", ErrForbidden)
	}
	token, err := s.auth.Issue(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u}, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]*user.User, error) {
	return s.repo.ListAll(ctx)
}

// Update 后台编辑资料、角色与状态
func (s *UserService) Update(ctx context.Context, id int64, in UserUpdate) (*user.User, error) {
	in.Email = normalizeEmail(in.Email)
	errs := fieldErrors{}
	validateProfile(errs, in.FirstName, in.LastName, in.Email, in.Phone)
	if !in.Role.Valid() {
		errs.add("role", "rol inválido")
	}
	if in.State != user.StateActive && in.State != user.StateInactive {
		errs.add("state", "estado inválido")
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, bad := errs["email"]; !bad && in.Email != u.Email {
		exists, err := s.repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			errs.add("email", "ya registrado")
		}
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.SecondLastName = strings.TrimSpace(in.SecondLastName)
	u.Phone = strings.TrimSpace(in.Phone)
	u.Email = in.Email
	u.Role = in.Role
	u.State = in.State
	u.Active = in.State == user.StateActive
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// ToggleActive 启用/停用账户，状态字段同步
func (s *UserService) ToggleActive(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = !u.Active
	u.State = user.StateInactive
	if u.Active {
		u.State = user.StateActive
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// EnsureAdmin 邮箱不存在时创建管理员，供 seed 使用
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (*user.User, bool, error) {
	email = normalizeEmail(email)
	u, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if len(password) < 6 {
		return nil, false, &ValidationError{Fields: map[string]string{"password": "mínimo 6 caracteres"}}
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, false, err
	}
	u = &user.User{
		FirstName:    "Administrador",
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		State:        user.StateActive,
		Active:       true,
		RegisteredAt: time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, err
	}
	return u, true, nil
}
