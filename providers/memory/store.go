package memory

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// User is an end-user record. Claims are keyed by claim name, optionally
// suffixed with "#" and a language tag for localized values, e.g.
// "family_name#ja".
type User struct {
	Username string
	Subject  string
	Claims   map[string]any

	passwordHash []byte
}

// Store is an in-memory user store. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	byUsername map[string]*User
	bySubject  map[string]*User
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byUsername: make(map[string]*User),
		bySubject:  make(map[string]*User),
	}
}

// AddUser registers a user. The password is hashed with bcrypt before
// storage; the plaintext is not retained.
func (s *Store) AddUser(username, password, subject string, claims map[string]any) error {
	if username == "" || subject == "" {
		return fmt.Errorf("username and subject are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byUsername[username]; exists {
		return fmt.Errorf("user %q already exists", username)
	}

	user := &User{
		Username:     username,
		Subject:      subject,
		Claims:       claims,
		passwordHash: hash,
	}
	s.byUsername[username] = user
	s.bySubject[subject] = user
	return nil
}

// AuthenticateUser implements the password-grant authenticator SPI. It
// returns the user's subject when the credentials match and "" otherwise.
func (s *Store) AuthenticateUser(username, password string) string {
	s.mu.RLock()
	user, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		// Burn a comparison anyway so a missing user costs the same as a
		// wrong password.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ""
	}

	if bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) != nil {
		return ""
	}
	return user.Subject
}

// GetUserClaimValue implements the claim provider SPI. A languageTag of ""
// looks up the untagged value; nil means the claim (or that localization) is
// absent.
func (s *Store) GetUserClaimValue(subject, claimName, languageTag string) any {
	s.mu.RLock()
	user, ok := s.bySubject[subject]
	s.mu.RUnlock()
	if !ok || user.Claims == nil {
		return nil
	}

	key := claimName
	if languageTag != "" {
		key += "#" + languageTag
	}
	return user.Claims[key]
}

// dummyHash is compared against when the username is unknown, keeping the
// timing of failed lookups close to failed password checks.
var dummyHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("placeholder"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}()
