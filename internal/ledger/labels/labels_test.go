package labels

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestSystemAccountNameEnglish(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)
	require.Equal(t, language.English, l.Locale())

	require.Equal(t, "Accounts Receivable (USD)", l.SystemAccountName("accounts-receivable", "USD"))
	require.Equal(t, "Accounts Payable (EUR)", l.SystemAccountName("accounts-payable", "EUR"))
	require.Equal(t, "Accounts Receivable", l.SystemAccountName("accounts-receivable", ""))
	require.Equal(t, "Accounts Payable", l.SystemAccountName("accounts-payable", ""))
}

func TestSystemAccountNameIndonesian(t *testing.T) {
	l, err := New("id-ID")
	require.NoError(t, err)
	require.Equal(t, "Piutang Usaha (IDR)", l.SystemAccountName("accounts-receivable", "IDR"))
	require.Equal(t, "Utang Usaha", l.SystemAccountName("accounts-payable", ""))
}

func TestUnsupportedLocaleFallsBack(t *testing.T) {
	l, err := New("fr")
	require.NoError(t, err)
	require.Equal(t, "Accounts Payable (USD)", l.SystemAccountName("accounts-payable", "USD"))
}

func TestUnknownKindEchoed(t *testing.T) {
	l, err := New("en")
	require.NoError(t, err)
	require.Equal(t, "expense", l.SystemAccountName("expense", "USD"))
}

func TestInvalidLocale(t *testing.T) {
	_, err := New("!!")
	require.Error(t, err)
}
