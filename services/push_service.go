package services

import (
	"fmt"
	"net/http"

	"birdhouse-viewer/be/config"
	"birdhouse-viewer/be/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPushSender delivers notification payloads over the Web Push protocol.
// It is the production Delivery; tests swap in a fake.
type WebPushSender struct {
	cfg config.PushConfig
}

func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	return &WebPushSender{cfg: cfg}
}

func (w *WebPushSender) Send(sub models.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      w.cfg.Subject,
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404/410 mean the browser dropped the subscription for good.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrEndpointGone
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
