// Package mailer sends mail through Azure Communication Services email,
// authenticating requests with the HMAC scheme its connection strings carry.
package mailer

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiVersion = "2023-03-31"

type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	key        []byte
	sender     string
}

type Message struct {
	To        []string
	Subject   string
	PlainText string
	HTML      string
	ReplyTo   string
}

// NewFromConnectionString parses an "endpoint=...;accesskey=..." connection
// string as issued by Azure Communication Services.
func NewFromConnectionString(cs, sender string) (*Client, error) {
	var endpoint string
	var key []byte
	for _, part := range strings.Split(cs, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(k) {
		case "endpoint":
			endpoint = v
		case "accesskey":
			decoded, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("mailer: decode access key: %w", err)
			}
			key = decoded
		}
	}
	if endpoint == "" || len(key) == 0 {
		return nil, fmt.Errorf("mailer: connection string missing endpoint or accesskey")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("mailer: parse endpoint: %w", err)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   u,
		key:        key,
		sender:     sender,
	}, nil
}

type address struct {
	Address string `json:"address"`
}

type sendRequest struct {
	SenderAddress string `json:"senderAddress"`
	Recipients    struct {
		To []address `json:"to"`
	} `json:"recipients"`
	Content struct {
		Subject   string `json:"subject"`
		PlainText string `json:"plainText"`
		HTML      string `json:"html,omitempty"`
	} `json:"content"`
	ReplyTo []address `json:"replyTo,omitempty"`
}

// Send submits the message. ACS accepts it asynchronously with a 202.
func (c *Client) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}

	var body sendRequest
	body.SenderAddress = c.sender
	for _, to := range m.To {
		body.Recipients.To = append(body.Recipients.To, address{Address: to})
	}
	body.Content.Subject = m.Subject
	body.Content.PlainText = m.PlainText
	body.Content.HTML = m.HTML
	if m.ReplyTo != "" {
		body.ReplyTo = []address{{Address: m.ReplyTo}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("mailer: marshal request: %w", err)
	}

	u := *c.endpoint
	u.Path = "/emails:send"
	u.RawQuery = "api-version=" + apiVersion

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("mailer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("mailer: send failed: status %d", resp.StatusCode)
	}
	return nil
}

// sign applies the ACS HMAC-SHA256 request signature: the signed string is
// "VERB\npath?query\ndate;host;content-hash".
func (c *Client) sign(req *http.Request, body []byte) {
	hash := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(hash[:])
	date := time.Now().UTC().Format(http.TimeFormat)

	stringToSign := req.Method + "\n" + req.URL.RequestURI() + "\n" +
		date + ";" + req.URL.Host + ";" + contentHash

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization",
		"HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
}
