package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(`
tenants:
  - id: 7
    currencies: [usd, IDR]
  - id: 3
  - id: 7
    currencies: [USD, eur]
`))
	require.NoError(t, err)

	assert.Equal(t, DefaultEnsureSchedule, m.Schedule)
	require.Len(t, m.Tenants, 2)
	assert.Equal(t, EnsureTarget{TenantID: 3, Currencies: []string{}}, m.Tenants[0])
	assert.Equal(t, EnsureTarget{TenantID: 7, Currencies: []string{"EUR", "IDR", "USD"}}, m.Tenants[1])

	cron, err := m.Cron()
	require.NoError(t, err)
	require.Len(t, cron, 1)
	assert.Equal(t, DefaultEnsureSchedule, cron[0].Spec)
	assert.Equal(t, TaskEnsureSystemAccounts, cron[0].Task.Type())
}

func TestParseManifestErrors(t *testing.T) {
	cases := map[string]string{
		"bad tenant":    "tenants:\n  - id: 0\n",
		"bad currency":  "tenants:\n  - id: 1\n    currencies: [XXQ]\n",
		"unknown field": "tenant: []\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(body))
			require.Error(t, err)
		})
	}
}

func TestLoadManifestEmptyHasNoCron(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schedule: \"*/30 * * * *\"\n"), 0o600))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "*/30 * * * *", m.Schedule)

	cron, err := m.Cron()
	require.NoError(t, err)
	assert.Empty(t, cron)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
