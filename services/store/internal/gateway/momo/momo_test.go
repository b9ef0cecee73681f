package momo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:    endpoint,
		PartnerCode: "MOMOTEST",
		AccessKey:   "access",
		SecretKey:   "secret",
		RedirectURL: "https://shop.example/return",
		IPNURL:      "https://shop.example/ipn",
		RequestType: "captureWallet",
		Lang:        "vi",
		Timeout:     2 * time.Second,
	}
}

func TestSign_MatchesHMACSHA256(t *testing.T) {
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("accessKey=a&amount=1"))
	expected := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, expected, Sign("secret", "accessKey=a&amount=1"))
	assert.True(t, Verify("secret", "accessKey=a&amount=1", strings.ToUpper(expected)))
	assert.False(t, Verify("other", "accessKey=a&amount=1", expected))
}

func TestCreateSignaturePayload_CanonicalOrder(t *testing.T) {
	payload := createSignaturePayload("ak", createRequest{
		PartnerCode: "P",
		RequestType: "captureWallet",
		IPNURL:      "ipn",
		RedirectURL: "ret",
		OrderID:     "5-abc",
		Amount:      300000,
		OrderInfo:   "Payment for Orchid Store order 5",
		RequestID:   "rid",
	})

	assert.Equal(t,
		"accessKey=ak&amount=300000&extraData=&ipnUrl=ipn&orderId=5-abc&orderInfo=Payment for Orchid Store order 5"+
			"&partnerCode=P&redirectUrl=ret&requestId=rid&requestType=captureWallet",
		payload)
}

func TestCreatePayment_Success(t *testing.T) {
	var received createRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, createPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]any{
			"orderId":    received.OrderID,
			"requestId":  received.RequestID,
			"resultCode": 0,
			"message":    "Successful.",
			"payUrl":     "https://pay.example/" + received.OrderID,
			"qrCodeUrl":  "momo://qr",
			"deeplink":   "momo://app",
		})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	gw := NewClient(cfg, zap.NewNop())

	result, err := gw.CreatePayment(context.Background(), PaymentRequest{
		OrderID: 42,
		Amount:  decimal.RequireFromString("450000.40"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(450000), received.Amount)
	assert.Equal(t, "Payment for Orchid Store order 42", received.OrderInfo)
	assert.True(t, strings.HasPrefix(received.OrderID, "42-"))
	assert.Equal(t, Sign(cfg.SecretKey, createSignaturePayload(cfg.AccessKey, received)), received.Signature)

	assert.Equal(t, "https://pay.example/"+received.OrderID, result.PayURL)
	assert.Equal(t, "momo://qr", result.QRCodeURL)
	assert.Equal(t, "momo://app", result.Deeplink)
	assert.Equal(t, received.RequestID, result.RequestID)
}

func TestCreatePayment_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"resultCode": 41, "message": "duplicate orderId"})
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).
		CreatePayment(context.Background(), PaymentRequest{OrderID: 1, Amount: decimal.NewFromInt(1000)})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestCreatePayment_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient(testConfig(server.URL), zap.NewNop()).
		CreatePayment(context.Background(), PaymentRequest{OrderID: 1, Amount: decimal.NewFromInt(1000)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestVerifyCallback(t *testing.T) {
	cfg := testConfig("http://unused")
	gw := NewClient(cfg, zap.NewNop())

	cb := Callback{
		PartnerCode:  "MOMOTEST",
		OrderID:      "42-abc",
		RequestID:    "rid",
		Amount:       450000,
		OrderInfo:    OrderInfo(42),
		OrderType:    "momo_wallet",
		TransID:      99887766,
		ResultCode:   0,
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: 1700000000000,
	}
	cb.Signature = Sign(cfg.SecretKey, cb.SignaturePayload(cfg.AccessKey))
	assert.True(t, gw.VerifyCallback(cb))

	cb.Amount = 1
	assert.False(t, gw.VerifyCallback(cb))
}

func TestParseOrderID(t *testing.T) {
	tests := []struct {
		name   string
		cb     Callback
		wantID int64
		wantOK bool
	}{
		{"structured order id", Callback{OrderID: "42-a1b2c3", OrderInfo: "Payment for Orchid Store order 7"}, 42, true},
		{"plain numeric order id", Callback{OrderID: "42"}, 42, true},
		{"malformed order id falls back to info", Callback{OrderID: "abc-1", OrderInfo: "Payment for Orchid Store order 7"}, 7, true},
		{"missing order id falls back to info", Callback{OrderInfo: "Payment for Orchid Store order 7"}, 7, true},
		{"info without id", Callback{OrderInfo: "Payment for Orchid Store"}, 0, false},
		{"nothing", Callback{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseOrderID(tt.cb)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "momo:trans:5:0", Callback{TransID: 5}.DedupKey())
	assert.Equal(t, "momo:request:rid:1006", Callback{RequestID: "rid", ResultCode: 1006}.DedupKey())
}
