package eskiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	eskizapi "github.com/iota-uz/eskiz"
	"github.com/sirupsen/logrus"
)

var ErrEmptyRecipient = errors.New("eskiz: empty recipient phone")

type SMS struct {
	To      string
	Message string
}

// Result holds the raw gateway answer for the delivery record.
type Result struct {
	Raw string
}

type Service interface {
	SendSMS(ctx context.Context, sms SMS) (Result, error)
}

type service struct {
	cfg    Config
	client *eskizapi.APIClient
	tokens *tokenRefresher
	logger *logrus.Entry
}

func NewService(cfg Config, logger *logrus.Logger) Service {
	apiCfg := eskizapi.NewConfiguration()
	if cfg.URL() != "" {
		apiCfg.Servers = eskizapi.ServerConfigurations{{URL: cfg.URL()}}
	}
	client := eskizapi.NewAPIClient(apiCfg)

	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &service{
		cfg:    cfg,
		client: client,
		tokens: &tokenRefresher{client: client, cfg: cfg},
		logger: logger.WithField("component", "eskiz"),
	}
}

// gatewayPhone strips the leading '+' the gateway does not accept.
func gatewayPhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// SendSMS submits one message. An expired token is refreshed once and the
// submission repeated; a rejected message is never resubmitted.
func (s *service) SendSMS(ctx context.Context, sms SMS) (Result, error) {
	to := gatewayPhone(sms.To)
	if to == "" {
		return Result{}, ErrEmptyRecipient
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("eskiz: login: %w", err)
	}

	res, status, err := s.send(ctx, token, to, sms.Message)
	if status == http.StatusUnauthorized {
		s.logger.Debug("eskiz token rejected, refreshing")
		token, err = s.tokens.RefreshToken(ctx, token)
		if err != nil {
			return Result{}, fmt.Errorf("eskiz: refresh token: %w", err)
		}
		res, _, err = s.send(ctx, token, to, sms.Message)
	}
	return res, err
}

func (s *service) send(ctx context.Context, token, to, message string) (Result, int, error) {
	authCtx := context.WithValue(ctx, eskizapi.ContextAccessToken, token)
	resp, httpResp, err := s.client.DefaultApi.
		SendSms(authCtx).
		MobilePhone(to).
		Message(message).
		From(s.cfg.From()).
		Execute()

	status := 0
	if httpResp != nil {
		status = httpResp.StatusCode
		_ = httpResp.Body.Close()
	}
	if err != nil {
		return Result{}, status, fmt.Errorf("eskiz: send sms: %w", err)
	}

	raw, mErr := json.Marshal(resp)
	if mErr != nil {
		raw = []byte(fmt.Sprintf("%+v", resp))
	}
	return Result{Raw: string(raw)}, status, nil
}
