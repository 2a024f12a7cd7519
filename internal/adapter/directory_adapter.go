package adapter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DirectoryEntry holds the attributes a directory knows about a network account.
type DirectoryEntry struct {
	FullName string
	Email    string
	Groups   []string
}

// Attributes renders the entry as the user attributes map.
func (e DirectoryEntry) Attributes() map[string]interface{} {
	groups := e.Groups
	if groups == nil {
		groups = []string{}
	}
	attrs := map[string]interface{}{
		"full_name": e.FullName,
		"groups":    groups,
		"email":     nil,
	}
	if e.Email != "" {
		attrs["email"] = e.Email
	}
	return attrs
}

// DirectoryAdapter is the Anti-Corruption Layer over the corporate user directory.
type DirectoryAdapter interface {
	// LookupUser returns what the directory knows about a DOMAIN\name or bare username.
	LookupUser(ctx context.Context, username string) (DirectoryEntry, error)
}

// StaticDirectoryAdapter answers lookups without a directory server.
// The full name is the account part of the username; email is derived from EmailDomain when set.
type StaticDirectoryAdapter struct {
	EmailDomain   string
	DefaultGroups []string
	logger        *zap.Logger
}

// NewStaticDirectoryAdapter creates a directory adapter for deployments without LDAP.
func NewStaticDirectoryAdapter(emailDomain string, defaultGroups []string, logger *zap.Logger) *StaticDirectoryAdapter {
	return &StaticDirectoryAdapter{EmailDomain: emailDomain, DefaultGroups: defaultGroups, logger: logger}
}

// LookupUser derives an entry from the username alone.
func (a *StaticDirectoryAdapter) LookupUser(ctx context.Context, username string) (DirectoryEntry, error) {
	domainPart, account := SplitDomainUser(username)
	if account == "" {
		return DirectoryEntry{}, fmt.Errorf("empty account name in %q", username)
	}
	entry := DirectoryEntry{
		FullName: account,
		Groups:   append([]string(nil), a.DefaultGroups...),
	}
	if a.EmailDomain != "" {
		entry.Email = strings.ToLower(account) + "@" + a.EmailDomain
	}

	a.logger.Debug("[STATIC DIRECTORY] user looked up",
		zap.String("username", username),
		zap.String("domain", domainPart),
	)
	return entry, nil
}

// SplitDomainUser splits DOMAIN\name or name@domain into its parts.
func SplitDomainUser(username string) (string, string) {
	username = strings.TrimSpace(username)
	if i := strings.LastIndex(username, `\`); i >= 0 {
		return username[:i], username[i+1:]
	}
	if i := strings.LastIndex(username, "@"); i >= 0 {
		return username[i+1:], username[:i]
	}
	return "", username
}
