package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const createPath = "/v2/gateway/api/create"

// ErrRejected 게이트웨이가 resultCode != 0 으로 요청을 거절함
var ErrRejected = errors.New("payment request rejected by gateway")

// Config MoMo 연동 설정
type Config struct {
	Endpoint    string
	PartnerCode string
	AccessKey   string
	SecretKey   string
	RedirectURL string
	IPNURL      string
	RequestType string
	Lang        string
	Timeout     time.Duration
}

// PaymentRequest 결제 요청 (주문 ID + 금액)
type PaymentRequest struct {
	OrderID int64
	Amount  decimal.Decimal
}

// PaymentResult 결제 URL 정보
type PaymentResult struct {
	RequestID      string
	GatewayOrderID string
	PayURL         string
	QRCodeURL      string
	Deeplink       string
}

// Gateway 결제 게이트웨이 인터페이스
type Gateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
	VerifyCallback(cb Callback) bool
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestType string `json:"requestType"`
	IPNURL      string `json:"ipnUrl"`
	RedirectURL string `json:"redirectUrl"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	OrderInfo   string `json:"orderInfo"`
	RequestID   string `json:"requestId"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	AutoCapture bool   `json:"autoCapture"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	ResponseTime int64  `json:"responseTime"`
	Message      string `json:"message"`
	ResultCode   int    `json:"resultCode"`
	PayURL       string `json:"payUrl"`
	Deeplink     string `json:"deeplink"`
	QRCodeURL    string `json:"qrCodeUrl"`
}

type client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient MoMo 클라이언트 생성
func NewClient(cfg Config, logger *zap.Logger) Gateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// OrderInfo 결제 설명 문구. 마지막 토큰이 주문 ID 여야 콜백에서 복원할 수 있다.
func OrderInfo(orderID int64) string {
	return fmt.Sprintf("Payment for Orchid Store order %d", orderID)
}

// CreatePayment 결제 URL 발급
func (c *client) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	requestID := uuid.NewString()
	body := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		RequestType: c.cfg.RequestType,
		IPNURL:      c.cfg.IPNURL,
		RedirectURL: c.cfg.RedirectURL,
		OrderID:     fmt.Sprintf("%d-%s", req.OrderID, strings.ReplaceAll(requestID, "-", "")[:12]),
		Amount:      req.Amount.Round(0).IntPart(),
		OrderInfo:   OrderInfo(req.OrderID),
		RequestID:   requestID,
		Lang:        c.cfg.Lang,
		AutoCapture: true,
	}
	body.Signature = Sign(c.cfg.SecretKey, createSignaturePayload(c.cfg.AccessKey, body))

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.Endpoint, "/")+createPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	var result createResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("gateway response (%d) is not JSON: %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || result.ResultCode != 0 || result.PayURL == "" {
		c.logger.Warn("Payment gateway rejected request",
			zap.Int64("orderId", req.OrderID),
			zap.String("requestId", requestID),
			zap.Int("httpStatus", resp.StatusCode),
			zap.Int("resultCode", result.ResultCode),
			zap.String("message", result.Message),
		)
		return nil, fmt.Errorf("%w: resultCode=%d message=%s", ErrRejected, result.ResultCode, result.Message)
	}

	c.logger.Info("Payment URL issued",
		zap.Int64("orderId", req.OrderID),
		zap.String("requestId", requestID),
		zap.String("gatewayOrderId", body.OrderID),
	)

	return &PaymentResult{
		RequestID:      requestID,
		GatewayOrderID: body.OrderID,
		PayURL:         result.PayURL,
		QRCodeURL:      result.QRCodeURL,
		Deeplink:       result.Deeplink,
	}, nil
}

// VerifyCallback 콜백 서명 검증
func (c *client) VerifyCallback(cb Callback) bool {
	return Verify(c.cfg.SecretKey, cb.SignaturePayload(c.cfg.AccessKey), cb.Signature)
}
