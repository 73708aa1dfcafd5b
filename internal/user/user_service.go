package user

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	userRepository UserRepository
	config         Config
	privateKey     *rsa.PrivateKey
	publicKey      *rsa.PublicKey
}

func NewUserService(userRepository UserRepository, config Config, privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey) *UserService {
	return &UserService{
		userRepository: userRepository,
		config:         config,
		privateKey:     privateKey,
		publicKey:      publicKey,
	}
}

// Register creates an account. The very first account becomes the admin so a
// fresh deployment can be administered without out-of-band setup.
func (us *UserService) Register(email, username, password string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	if existing, err := us.userRepository.GetUserByEmail(email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrValidation)
	}
	if existing, err := us.userRepository.GetUserByUsername(username); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: username already taken", ErrValidation)
	}

	cost := us.config.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := RoleUser
	count, err := us.userRepository.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count == 0 {
		role = RoleAdmin
	}

	newUser := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().Unix(),
	}
	if err := us.userRepository.CreateUser(newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return newUser, nil
}

// Login verifies the password and issues a signed token.
func (us *UserService) Login(email, password string) (*LoginResponse, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := us.userRepository.GetUserByEmail(email)
	if err != nil || u == nil {
		return nil, fmt.Errorf("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password")
	}

	token, expiresAt, err := us.GenerateJWT(u)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// SetRole changes a user's role. Single-field, atomic; callers gate this
// behind the admin check.
func (us *UserService) SetRole(userID, role string) error {
	if !ValidRole(role) {
		return fmt.Errorf("%w: unknown role: %s", ErrValidation, role)
	}
	if _, err := us.userRepository.GetUserByID(userID); err != nil {
		return err
	}
	return us.userRepository.UpdateUserRole(userID, role)
}

func (us *UserService) GenerateJWT(u *User) (string, int64, error) {
	expiresAt := time.Now().Add(time.Duration(us.config.JWTExpirationHours) * time.Hour).Unix()

	claims := JWTClaims{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Unix(expiresAt, 0)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, err := token.SignedString(us.privateKey)
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresAt, nil
}

func (us *UserService) ValidateJWT(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return us.publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		u, err := us.userRepository.GetUserByID(claims.UserID)
		if err != nil {
			return nil, err
		}
		return u, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (us *UserService) ValidateJWTFromRequest(ctx *fasthttp.RequestCtx) (*User, error) {
	authHeader := ctx.Request.Header.Peek(headerAuthorization)
	if authHeader == nil {
		return nil, fmt.Errorf("missing authorization header")
	}

	tokenString, err := extractJWTFromAuthorizationHeader(string(authHeader))
	if err != nil {
		return nil, fmt.Errorf("invalid authorization header: %w", err)
	}

	return us.ValidateJWT(tokenString)
}

func extractJWTFromAuthorizationHeader(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != headerBearer {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
