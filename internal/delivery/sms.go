package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoday/yoday/internal/config"
)

const defaultSMSTimeout = 15 * time.Second

// SMSGateway sends OTP text messages through the bulk SMS provider. The
// provider takes every parameter on the query string of an empty POST.
type SMSGateway struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewSMSGateway(cfg config.SMSConfig, logger *logrus.Logger) *SMSGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}
	return &SMSGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type smsResponse struct {
	Status string `json:"Status"`
	Code   string `json:"Code"`
}

// SMSText is the body of the OTP text message.
func SMSText(code string) string {
	return fmt.Sprintf("Your otp for login in YODAY App is %s. Do not share it with anyone. - YODAY APP", code)
}

func (g *SMSGateway) Send(ctx context.Context, msg Message) error {
	if g.cfg.BaseURL == "" || g.cfg.AuthKey == "" {
		return ErrNotConfigured
	}

	u, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("sms: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("authentic-key", g.cfg.AuthKey)
	q.Set("senderid", g.cfg.SenderID)
	q.Set("route", g.cfg.Route)
	q.Set("number", msg.To)
	q.Set("message", SMSText(msg.Code))
	q.Set("templateid", g.cfg.TemplateID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.WithError(err).Error("SMS provider request failed")
		return fmt.Errorf("sms: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("sms: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.WithField("status", resp.StatusCode).Error("SMS provider rejected request")
		return fmt.Errorf("sms: request failed status=%d", resp.StatusCode)
	}

	var out smsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("sms: decode response: %w", err)
	}
	if out.Status != "Success" && out.Code != "000" {
		g.logger.WithFields(logrus.Fields{
			"provider_status": out.Status,
			"provider_code":   out.Code,
		}).Error("SMS provider did not accept message")
		return fmt.Errorf("sms: provider returned status=%q code=%q", out.Status, out.Code)
	}
	return nil
}
