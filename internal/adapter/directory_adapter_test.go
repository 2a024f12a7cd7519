package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSplitDomainUser(t *testing.T) {
	tests := []struct {
		in, domain, account string
	}{
		{`CORP\alice`, "CORP", "alice"},
		{"bob@corp.local", "corp.local", "bob"},
		{"carol", "", "carol"},
		{`  CORP\dave `, "CORP", "dave"},
	}
	for _, tt := range tests {
		d, a := SplitDomainUser(tt.in)
		assert.Equal(t, tt.domain, d, tt.in)
		assert.Equal(t, tt.account, a, tt.in)
	}
}

func TestStaticDirectoryAdapter_LookupUser(t *testing.T) {
	a := NewStaticDirectoryAdapter("corp.local", []string{"Domain Users"}, zap.NewNop())

	entry, err := a.LookupUser(context.Background(), `CORP\Alice`)
	require.NoError(t, err)
	assert.Equal(t, "Alice", entry.FullName)
	assert.Equal(t, "alice@corp.local", entry.Email)
	assert.Equal(t, []string{"Domain Users"}, entry.Groups)

	attrs := entry.Attributes()
	assert.Equal(t, "Alice", attrs["full_name"])
	assert.Equal(t, "alice@corp.local", attrs["email"])

	_, err = a.LookupUser(context.Background(), `CORP\`)
	assert.Error(t, err)
}

func TestDirectoryEntry_AttributesWithoutEmail(t *testing.T) {
	attrs := DirectoryEntry{FullName: "x"}.Attributes()
	assert.Nil(t, attrs["email"])
	assert.Equal(t, []string{}, attrs["groups"])
}
