package user

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	headerAuthorization = "Authorization"
	headerBearer        = "Bearer"

	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

var ErrValidation = errors.New("validation error")

// roleRank orders the role enum; RequireRole compares ranks, so an admin
// passes every moderator check.
var roleRank = map[string]int{
	RoleUser:      0,
	RoleModerator: 1,
	RoleAdmin:     2,
}

func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleAtLeast reports whether role meets or exceeds min in the role order.
func RoleAtLeast(role, min string) bool {
	r, ok := roleRank[role]
	m, ok2 := roleRank[min]
	return ok && ok2 && r >= m
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"createdAt"`
}

type UserRepository interface {
	CreateUser(user *User) error
	GetUserByID(id string) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByUsername(username string) (*User, error)
	ListUsers() ([]*User, error)
	// UpdateUserRole is an atomic single-field update; no intermediate state
	// is observable.
	UpdateUserRole(id string, role string) error
	CountUsers() (int, error)
}

type Config struct {
	JWTExpirationHours int `mapstructure:"jwt_expiration_hours"`
	BcryptCost         int `mapstructure:"bcrypt_cost"`
}

type JWTClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	User      *User  `json:"user"`
}
