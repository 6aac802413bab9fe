package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Roles a user may hold.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is an account able to log in.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user may change catalog and settings.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// dummyHash is compared against when the email is unknown, so both failure
// paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("printshop-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("generate dummy hash: %v", err))
	}
	return hash
})

// Users is the users repository.
type Users struct {
	db *sql.DB
}

// HashPassword returns the bcrypt hash stored in users.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate checks email and password and returns the matching user.
func (u *Users) Authenticate(ctx context.Context, email, password string) (User, error) {
	var (
		user User
		hash string
	)
	err := u.db.QueryRowContext(ctx, `
		SELECT id, email, role, password_hash FROM users WHERE email = ?
	`, email).Scan(&user.ID, &user.Email, &user.Role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("query user credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns the user with the given email.
func (u *Users) Get(ctx context.Context, email string) (User, error) {
	var user User
	err := u.db.QueryRowContext(ctx, `SELECT id, email, role FROM users WHERE email = ?`, email).
		Scan(&user.ID, &user.Email, &user.Role)
	if err != nil {
		return User{}, notFound(err, "user")
	}
	return user, nil
}

// Create inserts a user with a bcrypt-hashed password.
func (u *Users) Create(ctx context.Context, email, password, role string) (User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	res, err := u.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)
	`, email, hash, role)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("insert user id: %w", err)
	}
	return User{ID: id, Email: email, Role: role}, nil
}
