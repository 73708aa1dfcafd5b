package user

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestUserService(t *testing.T) (*UserService, *MemoryRepository) {
	t.Helper()
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	repo := NewMemoryRepository()
	// Minimum bcrypt cost keeps the suite fast.
	config := Config{JWTExpirationHours: 1, BcryptCost: 4}
	return NewUserService(repo, config, privateKey, &privateKey.PublicKey), repo
}

func TestRegister_ShouldMakeFirstUserAdmin(t *testing.T) {
	service, _ := newTestUserService(t)

	first, err := service.Register("sensei@dojo.org", "sensei", "black-belt-1")
	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, first.Role)

	second, err := service.Register("kenta@dojo.org", "kenta", "white-belt-1")
	assert.NoError(t, err)
	assert.Equal(t, RoleUser, second.Role)
}

func TestRegister_ShouldRejectDuplicateEmail(t *testing.T) {
	service, _ := newTestUserService(t)

	_, err := service.Register("kenta@dojo.org", "kenta", "password-1")
	assert.NoError(t, err)

	_, err = service.Register("kenta@dojo.org", "other", "password-2")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegister_ShouldRejectDuplicateUsername(t *testing.T) {
	service, _ := newTestUserService(t)

	_, err := service.Register("kenta@dojo.org", "kenta", "password-1")
	assert.NoError(t, err)

	_, err = service.Register("kenta2@dojo.org", "kenta", "password-2")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegister_ShouldRejectShortPassword(t *testing.T) {
	service, _ := newTestUserService(t)

	_, err := service.Register("kenta@dojo.org", "kenta", "short")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegister_ShouldNormalizeEmail(t *testing.T) {
	service, _ := newTestUserService(t)

	u, err := service.Register("  Kenta@Dojo.ORG ", "kenta", "password-1")
	assert.NoError(t, err)
	assert.Equal(t, "kenta@dojo.org", u.Email)
}

func TestLogin_ShouldIssueValidToken(t *testing.T) {
	service, _ := newTestUserService(t)
	registered, err := service.Register("kenta@dojo.org", "kenta", "password-1")
	assert.NoError(t, err)

	resp, err := service.Login("kenta@dojo.org", "password-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	validated, err := service.ValidateJWT(resp.Token)
	assert.NoError(t, err)
	assert.Equal(t, registered.ID, validated.ID)
	assert.Equal(t, "kenta", validated.Username)
}

func TestLogin_ShouldRejectWrongPassword(t *testing.T) {
	service, _ := newTestUserService(t)
	_, err := service.Register("kenta@dojo.org", "kenta", "password-1")
	assert.NoError(t, err)

	_, err = service.Login("kenta@dojo.org", "wrong-password")
	assert.Error(t, err)
}

func TestLogin_ShouldRejectUnknownEmail(t *testing.T) {
	service, _ := newTestUserService(t)

	_, err := service.Login("nobody@dojo.org", "password-1")
	assert.Error(t, err)
}

func TestValidateJWT_ShouldRejectTamperedToken(t *testing.T) {
	service, _ := newTestUserService(t)
	_, err := service.Register("kenta@dojo.org", "kenta", "password-1")
	assert.NoError(t, err)
	resp, err := service.Login("kenta@dojo.org", "password-1")
	assert.NoError(t, err)

	_, err = service.ValidateJWT(resp.Token + "x")
	assert.Error(t, err)
}

func TestSetRole_ShouldUpdateExistingUserRole(t *testing.T) {
	service, repo, user := registeredUser(t)

	err := service.SetRole(user.ID, RoleModerator)
	assert.NoError(t, err)

	updated, err := repo.GetUserByID(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, RoleModerator, updated.Role)
}

func TestSetRole_ShouldRejectUnknownRole(t *testing.T) {
	service, _, user := registeredUser(t)

	err := service.SetRole(user.ID, "sensei")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetRole_ShouldFailForNonExistentUser(t *testing.T) {
	service, _ := newTestUserService(t)

	err := service.SetRole("missing-id", RoleModerator)
	assert.Error(t, err)
}

func TestRoleAtLeast_ShouldFollowRoleOrder(t *testing.T) {
	assert.True(t, RoleAtLeast(RoleAdmin, RoleModerator))
	assert.True(t, RoleAtLeast(RoleModerator, RoleModerator))
	assert.False(t, RoleAtLeast(RoleUser, RoleModerator))
	assert.False(t, RoleAtLeast("sensei", RoleUser))
}

func TestExtractJWTFromAuthorizationHeader_ShouldExtractValidly(t *testing.T) {
	token, err := extractJWTFromAuthorizationHeader("Bearer abc.def.ghi")
	assert.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
}

func TestExtractJWTFromAuthorizationHeader_ShouldFailWithInvalidFormat(t *testing.T) {
	_, err := extractJWTFromAuthorizationHeader("Basic abc")
	assert.Error(t, err)

	_, err = extractJWTFromAuthorizationHeader("Bearer")
	assert.Error(t, err)
}

func registeredUser(t *testing.T) (*UserService, *MemoryRepository, *User) {
	t.Helper()
	service, repo := newTestUserService(t)
	// First registration becomes the admin, so register a throwaway first.
	_, err := service.Register("admin@dojo.org", "admin", "password-1")
	assert.NoError(t, err)
	u, err := service.Register("kenta@dojo.org", "kenta", "password-1")
	assert.NoError(t, err)
	return service, repo, u
}
