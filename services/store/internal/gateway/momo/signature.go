package momo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Sign HMAC-SHA256 hex 서명
func Sign(secretKey, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 서명 비교 (상수 시간)
func Verify(secretKey, payload, signature string) bool {
	expected := Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func createSignaturePayload(accessKey string, r createRequest) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		accessKey, r.Amount, r.ExtraData, r.IPNURL, r.OrderID, r.OrderInfo, r.PartnerCode, r.RedirectURL, r.RequestID, r.RequestType,
	)
}

// Callback IPN(POST JSON) 과 redirect(GET query) 공통 필드
type Callback struct {
	PartnerCode  string `json:"partnerCode" query:"partnerCode"`
	OrderID      string `json:"orderId" query:"orderId"`
	RequestID    string `json:"requestId" query:"requestId"`
	Amount       int64  `json:"amount" query:"amount"`
	OrderInfo    string `json:"orderInfo" query:"orderInfo"`
	OrderType    string `json:"orderType" query:"orderType"`
	TransID      int64  `json:"transId" query:"transId"`
	ResultCode   int    `json:"resultCode" query:"resultCode"`
	Message      string `json:"message" query:"message"`
	PayType      string `json:"payType" query:"payType"`
	ResponseTime int64  `json:"responseTime" query:"responseTime"`
	ExtraData    string `json:"extraData" query:"extraData"`
	Signature    string `json:"signature" query:"signature"`
}

// Succeeded resultCode 0 = 결제 성공
func (cb Callback) Succeeded() bool {
	return cb.ResultCode == 0
}

// SignaturePayload 콜백 서명 원문
func (cb Callback) SignaturePayload(accessKey string) string {
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		accessKey, cb.Amount, cb.ExtraData, cb.Message, cb.OrderID, cb.OrderInfo, cb.OrderType,
		cb.PartnerCode, cb.PayType, cb.RequestID, cb.ResponseTime, cb.ResultCode, cb.TransID,
	)
}

// DedupKey 중복 콜백 판별 키. transId 가 없으면 requestId 사용
func (cb Callback) DedupKey() string {
	if cb.TransID != 0 {
		return "momo:trans:" + strconv.FormatInt(cb.TransID, 10) + ":" + strconv.Itoa(cb.ResultCode)
	}
	return "momo:request:" + cb.RequestID + ":" + strconv.Itoa(cb.ResultCode)
}

// ParseOrderID 콜백에서 주문 ID 복원.
// 게이트웨이 orderId("<id>-<suffix>") 를 우선 사용하고, 없거나 형식이 다르면
// orderInfo 의 마지막 공백 뒤 토큰을 사용한다.
func ParseOrderID(cb Callback) (int64, bool) {
	if cb.OrderID != "" {
		prefix, _, _ := strings.Cut(cb.OrderID, "-")
		if id, err := strconv.ParseInt(prefix, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return orderIDFromInfo(cb.OrderInfo)
}

func orderIDFromInfo(info string) (int64, bool) {
	info = strings.TrimSpace(info)
	if info == "" {
		return 0, false
	}
	token := info[strings.LastIndex(info, " ")+1:]
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
