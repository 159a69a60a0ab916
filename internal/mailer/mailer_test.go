package mailer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testMailer(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cs := "endpoint=" + srv.URL + ";accesskey=" + base64.StdEncoding.EncodeToString(testKey)
	c, err := NewFromConnectionString(cs, "noreply@fleet.example")
	require.NoError(t, err)
	return c
}

func TestNewFromConnectionString(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(testKey)
	c, err := NewFromConnectionString("endpoint=https://acs.example;accesskey="+key, "noreply@fleet.example")
	require.NoError(t, err)
	require.Equal(t, "acs.example", c.endpoint.Host)
	require.Equal(t, testKey, c.key)

	_, err = NewFromConnectionString("endpoint=https://acs.example", "noreply@fleet.example")
	require.Error(t, err)
	_, err = NewFromConnectionString("accesskey="+key, "noreply@fleet.example")
	require.Error(t, err)
	_, err = NewFromConnectionString("endpoint=https://acs.example;accesskey=%%%", "noreply@fleet.example")
	require.Error(t, err)
}

func TestSend(t *testing.T) {
	var gotReq *http.Request
	var gotBody []byte
	c := testMailer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))

	err := c.Send(context.Background(), Message{
		To:        []string{"crew@example.com"},
		Subject:   "Assignment",
		PlainText: "You were assigned.",
		HTML:      "<p>You were assigned.</p>",
		ReplyTo:   "super@example.com",
	})
	require.NoError(t, err)

	require.Equal(t, "/emails:send", gotReq.URL.Path)
	require.Equal(t, "api-version=2023-03-31", gotReq.URL.RawQuery)

	var body sendRequest
	require.NoError(t, json.Unmarshal(gotBody, &body))
	require.Equal(t, "noreply@fleet.example", body.SenderAddress)
	require.Equal(t, []address{{Address: "crew@example.com"}}, body.Recipients.To)
	require.Equal(t, "Assignment", body.Content.Subject)
	require.Equal(t, []address{{Address: "super@example.com"}}, body.ReplyTo)

	// Signature headers per the ACS HMAC scheme.
	date := gotReq.Header.Get("x-ms-date")
	require.NotEmpty(t, date)
	hash := sha256.Sum256(gotBody)
	contentHash := base64.StdEncoding.EncodeToString(hash[:])
	require.Equal(t, contentHash, gotReq.Header.Get("x-ms-content-sha256"))

	stringToSign := "POST\n/emails:send?api-version=2023-03-31\n" +
		date + ";" + gotReq.Host + ";" + contentHash
	mac := hmac.New(sha256.New, testKey)
	mac.Write([]byte(stringToSign))
	want := "HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature=" +
		base64.StdEncoding.EncodeToString(mac.Sum(nil))
	require.Equal(t, want, gotReq.Header.Get("Authorization"))
}

func TestSendRejectedStatus(t *testing.T) {
	c := testMailer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Send(context.Background(), Message{To: []string{"crew@example.com"}, Subject: "x"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "401"))
}

func TestSendNoRecipients(t *testing.T) {
	c := testMailer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	}))
	require.Error(t, c.Send(context.Background(), Message{}))
}
