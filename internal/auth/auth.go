// Package auth provides the in-memory account store and token
// validation the game service delegates login and reconnect to.
// Built on login.SessionManager's pattern (internal/login/
// session_manager.go): a sync.Map keyed by account name, with the same
// thread-safety tradeoffs. Passwords are hashed with bcrypt
// (golang.org/x/crypto/bcrypt), which that precedent's account flow
// does not need (it defers credential checks to the login server) but
// which this self-contained world server must do itself.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when a username is unknown or the
	// password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountExists is returned by Register when the username is taken.
	ErrAccountExists = errors.New("auth: account already exists")
	// ErrInvalidToken names an unknown token. Validate itself reports an
	// unknown token with ok=false rather than returning this error.
	ErrInvalidToken = errors.New("auth: invalid token")
)

type account struct {
	username     string
	passwordHash []byte
}

// Authenticator is an in-memory reference account store. It never
// expires a token once issued; a production deployment backed by a
// shared store is out of scope here.
type Authenticator struct {
	accounts sync.Map // username -> *account
	tokens   sync.Map // token -> username
}

// New creates an empty Authenticator.
func New() *Authenticator {
	return &Authenticator{}
}

// Register creates a new account with the given username and password.
func (a *Authenticator) Register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	acc := &account{username: username, passwordHash: hash}
	if _, loaded := a.accounts.LoadOrStore(username, acc); loaded {
		return ErrAccountExists
	}
	return nil
}

// Login validates username/password and issues a fresh token on success.
func (a *Authenticator) Login(username, password string) (token string, err error) {
	val, ok := a.accounts.Load(username)
	if !ok {
		return "", ErrInvalidCredentials
	}
	acc := val.(*account)
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token, err = newToken()
	if err != nil {
		return "", err
	}
	a.tokens.Store(token, username)
	return token, nil
}

// Validate resolves a token back to its username.
func (a *Authenticator) Validate(token string) (username string, ok bool) {
	val, ok := a.tokens.Load(token)
	if !ok {
		return "", false
	}
	return val.(string), true
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
