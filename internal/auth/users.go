package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

const MinPasswordLen = 6

type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`

	passwordHash string
}

func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLen {
		return "", apperr.Invalid("password", "must be at least %d characters", MinPasswordLen)
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type UserRepo struct {
	DB   *pgxpool.Pool
	Cost int // bcrypt cost, 0 = default
}

const userColumns = `id, name, email, role, is_active, last_login, created_at, password_hash`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.passwordHash)
	return u, err
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user", email)
	}
	if err != nil {
		return User{}, fmt.Errorf("auth: load user: %w", err)
	}
	return u, nil
}

// EnsureAdmin creates the user unless the email is taken. created reports which happened.
func (r *UserRepo) EnsureAdmin(ctx context.Context, name, email, password, role string) (u User, created bool, err error) {
	if role != RoleAdmin && role != RoleSuperAdmin {
		return User{}, false, apperr.Invalid("role", "must be %s or %s", RoleAdmin, RoleSuperAdmin)
	}
	hash, err := HashPassword(password, r.Cost)
	if err != nil {
		return User{}, false, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, name, email, password_hash, role)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (email) DO NOTHING`, uuid.New(), name, email, hash, role)
	if err != nil {
		return User{}, false, fmt.Errorf("auth: create user: %w", err)
	}
	u, err = r.ByEmail(ctx, email)
	return u, ct.RowsAffected() == 1, err
}

// Authenticate checks the password and stamps last_login. Unknown email, inactive user and
// wrong password all return ErrInvalidCredentials.
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := r.ByEmail(ctx, email)
	if apperr.IsNotFound(err) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if !u.IsActive || !CheckPassword(u.passwordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	if _, err := r.DB.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, u.ID, now); err != nil {
		return User{}, fmt.Errorf("auth: stamp login: %w", err)
	}
	u.LastLogin = &now
	return u, nil
}
