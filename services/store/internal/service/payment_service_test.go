package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/giakoii/Orchid-Store-Management-sub000/common/errors"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/domain"
	"github.com/giakoii/Orchid-Store-Management-sub000/services/store/internal/gateway/momo"
)

func successCallback(order *domain.Order, transID int64) momo.Callback {
	return signed(momo.Callback{
		OrderID:    "",
		OrderInfo:  momo.OrderInfo(order.ID),
		Amount:     order.Total.Round(0).IntPart(),
		TransID:    transID,
		ResultCode: 0,
	})
}

func TestHandleCallback_SuccessCompletesOrder(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")

	f.expectCommit()

	result, err := f.paymentService().HandleCallback(context.Background(), successCallback(order, 1001))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, result.Status)
	assert.False(t, result.Retry)
	assert.Equal(t, domain.OrderStatusCompleted, f.mem.orders[order.ID].Status)
	assert.Equal(t, PaymentActor, f.mem.orders[order.ID].UpdatedBy)
	assert.Len(t, f.mem.outbox, 1)
}

func TestHandleCallback_FailureIssuesNewPaymentURL(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")

	f.gateway.On("CreatePayment", mock.Anything, mock.MatchedBy(func(req momo.PaymentRequest) bool {
		return req.OrderID == order.ID && req.Amount.Equal(order.Total)
	})).Return(&momo.PaymentResult{PayURL: "https://pay.example/retry"}, nil).Once()

	cb := signed(momo.Callback{OrderInfo: momo.OrderInfo(order.ID), ResultCode: 1006, Message: "user denied"})
	result, err := f.paymentService().HandleCallback(context.Background(), cb)
	require.NoError(t, err)

	assert.True(t, result.Retry)
	assert.Equal(t, "https://pay.example/retry", result.PayURL)
	assert.Equal(t, domain.OrderStatusProcessing, result.Status)
	assert.Equal(t, domain.OrderStatusProcessing, f.mem.orders[order.ID].Status)
	assert.Empty(t, f.mem.outbox)
}

func TestHandleCallback_FinalizedOrderIsRejected(t *testing.T) {
	for _, status := range []domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
			order := f.seedOrder(owner.ID, status, "300000")

			_, err := f.paymentService().HandleCallback(context.Background(), successCallback(order, 2002))
			assert.Equal(t, errors.ErrCodeOrderAlreadyFinalized, errors.CodeOf(err))
			assert.Equal(t, status, f.mem.orders[order.ID].Status)

			processed, err := f.idem.IsProcessed(context.Background(), successCallback(order, 2002).DedupKey())
			require.NoError(t, err)
			assert.False(t, processed, "rejected callbacks release their idempotency key")
		})
	}
}

func TestHandleCallback_AmountMismatch(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")

	cb := successCallback(order, 3003)
	cb.Amount = 1000
	cb = signed(cb)

	_, err := f.paymentService().HandleCallback(context.Background(), cb)
	assert.Equal(t, errors.ErrCodePaymentAmountMismatch, errors.CodeOf(err))
	assert.Equal(t, domain.OrderStatusProcessing, f.mem.orders[order.ID].Status)
}

func TestHandleCallback_InvalidSignature(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")

	cb := successCallback(order, 4004)
	cb.Signature = "deadbeef"

	_, err := f.paymentService().HandleCallback(context.Background(), cb)
	assert.Equal(t, errors.ErrCodeInvalidSignature, errors.CodeOf(err))

	tampered := successCallback(order, 4005)
	tampered.Amount++
	_, err = f.paymentService().HandleCallback(context.Background(), tampered)
	assert.Equal(t, errors.ErrCodeInvalidSignature, errors.CodeOf(err))
	assert.Equal(t, domain.OrderStatusProcessing, f.mem.orders[order.ID].Status)
}

func TestHandleCallback_UnsignedIsRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")

	cb := momo.Callback{OrderInfo: momo.OrderInfo(order.ID), Amount: 300000, TransID: 1, ResultCode: 0}
	_, err := f.paymentService().HandleCallback(context.Background(), cb)
	assert.Equal(t, errors.ErrCodeInvalidSignature, errors.CodeOf(err))
	assert.Equal(t, domain.OrderStatusProcessing, f.mem.orders[order.ID].Status)
	assert.Empty(t, f.mem.outbox)

	processed, err := f.idem.IsProcessed(context.Background(), cb.DedupKey())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestHandleCallback_DuplicateIsIgnored(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")
	svc := f.paymentService()

	f.expectCommit()
	_, err := svc.HandleCallback(context.Background(), successCallback(order, 5005))
	require.NoError(t, err)

	result, err := svc.HandleCallback(context.Background(), successCallback(order, 5005))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, domain.OrderStatusCompleted, result.Status)
	assert.Len(t, f.mem.outbox, 1)
}

func TestHandleCallback_StructuredOrderIDWins(t *testing.T) {
	f := newFixture(t)
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")

	cb := successCallback(order, 6006)
	cb.OrderInfo = "free text without an id"
	cb.OrderID = strconv.FormatInt(order.ID, 10) + "-abc"
	cb = signed(cb)

	f.expectCommit()
	result, err := f.paymentService().HandleCallback(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, order.ID, result.OrderID)
}

func TestHandleCallback_UnrecoverableOrderID(t *testing.T) {
	f := newFixture(t)

	_, err := f.paymentService().HandleCallback(context.Background(), signed(momo.Callback{OrderInfo: "no id here"}))
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

func TestHandleCallback_UpdatesPaymentLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")
	first := strconv.FormatInt(order.ID, 10) + "-1"
	require.NoError(t, memPayments{f.mem}.Create(ctx,
		domain.NewPaymentAttempt(order.ID, "req-1", first, "https://pay.example/1", order.Total, testNow)))

	f.gateway.On("CreatePayment", mock.Anything, mock.Anything).
		Return(&momo.PaymentResult{RequestID: "req-2", GatewayOrderID: strconv.FormatInt(order.ID, 10) + "-2",
			PayURL: "https://pay.example/2"}, nil).Once()

	failed := signed(momo.Callback{OrderID: first, ResultCode: 1006, TransID: 501, Message: "user denied"})
	_, err := f.paymentService().HandleCallback(ctx, failed)
	require.NoError(t, err)

	paid := successCallback(order, 502)
	paid.OrderID = strconv.FormatInt(order.ID, 10) + "-2"
	paid = signed(paid)
	f.expectCommit()
	_, err = f.paymentService().HandleCallback(ctx, paid)
	require.NoError(t, err)

	attempts, err := memPayments{f.mem}.ListByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.PaymentStatusSucceeded, attempts[0].Status)
	assert.Equal(t, int64(502), *attempts[0].TransID)
	assert.Equal(t, domain.PaymentStatusFailed, attempts[1].Status)
	assert.Equal(t, 1006, *attempts[1].ResultCode)
	assert.Equal(t, "user denied", attempts[1].Message)
}

func TestHandleCallback_DuplicateFailureReturnsPendingLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusProcessing, "300000")
	first := strconv.FormatInt(order.ID, 10) + "-1"
	require.NoError(t, memPayments{f.mem}.Create(ctx,
		domain.NewPaymentAttempt(order.ID, "req-1", first, "https://pay.example/1", order.Total, testNow)))

	f.gateway.On("CreatePayment", mock.Anything, mock.Anything).
		Return(&momo.PaymentResult{RequestID: "req-2", GatewayOrderID: strconv.FormatInt(order.ID, 10) + "-2",
			PayURL: "https://pay.example/retry", QRCodeURL: "momo://qr/retry", Deeplink: "momo://app/retry"}, nil).Once()

	failed := signed(momo.Callback{OrderID: first, ResultCode: 1006, TransID: 777, Message: "user denied"})
	svc := f.paymentService()

	ipn, err := svc.HandleCallback(ctx, failed)
	require.NoError(t, err)
	assert.True(t, ipn.Retry)
	assert.False(t, ipn.Duplicate)

	redirect, err := svc.HandleCallback(ctx, failed)
	require.NoError(t, err)
	assert.True(t, redirect.Duplicate)
	assert.True(t, redirect.Retry)
	assert.Equal(t, "https://pay.example/retry", redirect.PayURL)
	assert.Equal(t, "momo://qr/retry", redirect.QRCodeURL)
	assert.Equal(t, "momo://app/retry", redirect.Deeplink)
}

func TestHandleCallback_PaymentOnCancelledOrderIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedAccount("owner@orchid.vn", domain.RoleCustomer)
	order := f.seedOrder(owner.ID, domain.OrderStatusCancelled, "300000")
	gatewayOrderID := strconv.FormatInt(order.ID, 10) + "-1"
	require.NoError(t, memPayments{f.mem}.Create(ctx,
		domain.NewPaymentAttempt(order.ID, "req-1", gatewayOrderID, "https://pay.example/1", order.Total, testNow)))

	cb := successCallback(order, 8008)
	cb.OrderID = gatewayOrderID
	cb = signed(cb)

	_, err := f.paymentService().HandleCallback(ctx, cb)
	assert.Equal(t, errors.ErrCodeOrderAlreadyFinalized, errors.CodeOf(err))
	assert.Equal(t, domain.OrderStatusCancelled, f.mem.orders[order.ID].Status)

	attempt, err := memPayments{f.mem}.FindByGatewayOrderID(ctx, gatewayOrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, attempt.Status)
	require.NotNil(t, attempt.TransID)
	assert.Equal(t, int64(8008), *attempt.TransID)
}
