package nuban

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nairaramp_back/pkg/apperr"
)

func newServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestVerifyReadsAccountName(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, `{"account_name":"ADA OBI","account_number":"0123456789"}`)
	c := New(Config{BaseURL: srv.URL, APIKey: "NUBAN-KEY"})

	res, err := c.Verify(context.Background(), "0123456789", "057")
	require.NoError(t, err)
	assert.Equal(t, "ADA OBI", res.AccountName)
	assert.Equal(t, "057", res.BankCode)
	assert.Equal(t, "/NUBAN-KEY", seen.URL.Path)
	assert.Equal(t, "057", seen.URL.Query().Get("bank_code"))
	assert.Equal(t, "0123456789", seen.URL.Query().Get("acc_no"))
}

func TestVerifyAlternateShapes(t *testing.T) {
	for name, body := range map[string]string{
		"nested": `{"status":true,"data":{"account_name":"CHIDI EZE"}}`,
		"camel":  `{"accountName":"CHIDI EZE"}`,
		"list":   `[{"account_name":"CHIDI EZE","bank_code":"044"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := newServer(t, http.StatusOK, body)
			res, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Verify(context.Background(), "1234567890", "044")
			require.NoError(t, err)
			assert.Equal(t, "CHIDI EZE", res.AccountName)
		})
	}
}

func TestVerifyErrorPayload(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"error":true,"message":"Account not found"}`)
	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Verify(context.Background(), "1234567890", "044")
	assert.Equal(t, apperr.BankVerificationFailed, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Account not found")
}

func TestVerifyHTTPError(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"message":"invalid api key"}`)
	_, err := New(Config{BaseURL: srv.URL, APIKey: "k"}).Verify(context.Background(), "1234567890", "044")
	assert.Equal(t, apperr.BankVerificationFailed, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestVerifyValidatesInput(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0", APIKey: "k"})

	_, err := c.Verify(context.Background(), "12345", "044")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))

	_, err = c.Verify(context.Background(), "1234567890", "")
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}

func TestBanks(t *testing.T) {
	assert.Len(t, Banks(), 18)
	name, ok := BankName("057")
	assert.True(t, ok)
	assert.Equal(t, "Zenith Bank", name)
}
