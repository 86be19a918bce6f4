package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/straye-as/offers-api/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Credentials verifies logins against the configured accounts.
// The admin pair wins over an entry with the same name in the users list.
type Credentials struct {
	accounts map[string]string
}

// NewCredentials builds the account table from configuration.
// Users is a comma separated list of "username:password" entries;
// malformed entries are skipped.
func NewCredentials(cfg *config.AuthConfig) *Credentials {
	accounts := make(map[string]string)

	for _, entry := range strings.Split(cfg.Users, ",") {
		name, password, ok := strings.Cut(strings.TrimSpace(entry), ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if !ok || name == "" || password == "" {
			continue
		}
		if _, exists := accounts[name]; !exists {
			accounts[name] = password
		}
	}

	if admin := strings.ToLower(strings.TrimSpace(cfg.AdminUsername)); admin != "" && cfg.AdminPassword != "" {
		accounts[admin] = cfg.AdminPassword
	}

	return &Credentials{accounts: accounts}
}

// Empty reports whether no account is configured
func (c *Credentials) Empty() bool {
	return len(c.accounts) == 0
}

// Verify checks a username and password. Stored passwords starting with
// "$2" are treated as bcrypt hashes, anything else is compared in constant time.
func (c *Credentials) Verify(username, password string) bool {
	stored, ok := c.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return false
	}

	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
