// Package push delivers Web Push messages signed with VAPID keys.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrGone means the push service no longer knows the subscription.
var ErrGone = errors.New("push subscription gone")

type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers one message to one subscription.
type Sender interface {
	Send(ctx context.Context, sub Subscription, msg Message) error
}

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int
}

type WebPushSender struct {
	cfg    VAPIDConfig
	client *http.Client
}

func NewWebPushSender(cfg VAPIDConfig) *WebPushSender {
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * 60 * 12
	}
	return &WebPushSender{cfg: cfg, client: &http.Client{}}
}

// Configured reports whether VAPID keys are present.
func (s *WebPushSender) Configured() bool {
	return s.cfg.PublicKey != "" && s.cfg.PrivateKey != ""
}

func (s *WebPushSender) Send(ctx context.Context, sub Subscription, msg Message) error {
	if !s.Configured() {
		return errors.New("web push is not configured")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrGone
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push service returned status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh base64url key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}
