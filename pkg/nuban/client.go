// Package nuban resolves Nigerian account numbers to account holder names.
package nuban

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
	"nairaramp_back/pkg/apperr"
)

var accountNumberRe = regexp.MustCompile(`^\d{10}$`)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	http   *resty.Client
	apiKey string
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		apiKey: cfg.APIKey,
	}
}

// Verify looks up the holder name for accountNumber at bankCode.
func (c *Client) Verify(ctx context.Context, accountNumber, bankCode string) (models.BankVerification, error) {
	if !accountNumberRe.MatchString(accountNumber) {
		return models.BankVerification{}, apperr.New(apperr.InvalidInput, "account number must be 10 digits")
	}
	if bankCode == "" {
		return models.BankVerification{}, apperr.New(apperr.InvalidInput, "bank code is required")
	}
	if c.apiKey == "" {
		return models.BankVerification{}, apperr.New(apperr.BankVerificationFailed, "bank verification is not configured")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("apiKey", c.apiKey).
		SetQueryParams(map[string]string{
			"bank_code": bankCode,
			"acc_no":    accountNumber,
		}).
		Get("/{apiKey}")
	if err != nil {
		return models.BankVerification{}, apperr.Wrap(err, apperr.BankVerificationFailed, "bank verification request failed")
	}

	body := parseBody(resp.Body())
	if resp.IsError() {
		msg := stringField(body, "message")
		if msg == "" {
			msg = fmt.Sprintf("verification failed with status %d", resp.StatusCode())
		}
		logrus.WithFields(logrus.Fields{"status": resp.StatusCode(), "bank_code": bankCode}).Warn("nuban: " + msg)
		return models.BankVerification{}, apperr.New(apperr.BankVerificationFailed, "%s", msg)
	}
	if failed(body) {
		msg := stringField(body, "message")
		if msg == "" {
			msg = "account verification failed"
		}
		return models.BankVerification{}, apperr.New(apperr.BankVerificationFailed, "%s", msg)
	}

	name := accountName(body)
	if name == "" {
		return models.BankVerification{}, apperr.New(apperr.BankVerificationFailed, "account name not found in verification response")
	}
	return models.BankVerification{
		AccountName:   name,
		AccountNumber: accountNumber,
		BankCode:      bankCode,
	}, nil
}

// parseBody accepts either an object or a list whose first element is the account.
func parseBody(raw []byte) map[string]interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		if len(t) > 0 {
			if m, ok := t[0].(map[string]interface{}); ok {
				return m
			}
		}
	}
	return nil
}

func failed(body map[string]interface{}) bool {
	switch v := body["error"].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		return true
	}
}

func accountName(body map[string]interface{}) string {
	for _, key := range []string{"account_name", "name"} {
		if s := stringField(body, key); s != "" {
			return s
		}
	}
	if data, ok := body["data"].(map[string]interface{}); ok {
		if s := stringField(data, "account_name"); s != "" {
			return s
		}
	}
	return stringField(body, "accountName")
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// Banks is the static list of supported Nigerian banks; the verification API exposes none.
func Banks() []models.Bank {
	return []models.Bank{
		{ID: "1", Code: "044", Name: "Access Bank"},
		{ID: "2", Code: "023", Name: "Citibank Nigeria"},
		{ID: "3", Code: "050", Name: "Ecobank Nigeria"},
		{ID: "4", Code: "011", Name: "First Bank of Nigeria"},
		{ID: "5", Code: "214", Name: "First City Monument Bank"},
		{ID: "6", Code: "070", Name: "Fidelity Bank Nigeria"},
		{ID: "7", Code: "058", Name: "Guaranty Trust Bank"},
		{ID: "8", Code: "030", Name: "Heritage Bank"},
		{ID: "9", Code: "301", Name: "Jaiz Bank"},
		{ID: "10", Code: "082", Name: "Keystone Bank"},
		{ID: "11", Code: "221", Name: "Stanbic IBTC Bank"},
		{ID: "12", Code: "068", Name: "Standard Chartered Bank"},
		{ID: "13", Code: "232", Name: "Sterling Bank"},
		{ID: "14", Code: "032", Name: "Union Bank of Nigeria"},
		{ID: "15", Code: "033", Name: "United Bank For Africa"},
		{ID: "16", Code: "215", Name: "Unity Bank"},
		{ID: "17", Code: "035", Name: "Wema Bank"},
		{ID: "18", Code: "057", Name: "Zenith Bank"},
	}
}

// BankName returns the name for a bank code.
func BankName(code string) (string, bool) {
	for _, b := range Banks() {
		if b.Code == code {
			return b.Name, true
		}
	}
	return "", false
}
