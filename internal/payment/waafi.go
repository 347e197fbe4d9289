package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pos-backoffice/internal/config"
)

const (
	waafiSchemaVersion = "1.0"
	waafiChannel       = "WEB"
	waafiServicePay    = "API_PURCHASE"
	waafiWalletMethod  = "mwallet_account"

	waafiCodeSuccess   = "2001"
	waafiStateApproved = "APPROVED"
)

type waafiRequest struct {
	SchemaVersion string             `json:"schemaVersion"`
	RequestID     string             `json:"requestId"`
	Timestamp     string             `json:"timestamp"`
	ChannelName   string             `json:"channelName"`
	ServiceName   string             `json:"serviceName"`
	ServiceParams waafiServiceParams `json:"serviceParams"`
}

type waafiServiceParams struct {
	MerchantUID     string           `json:"merchantUid"`
	APIUserID       string           `json:"apiUserId"`
	APIKey          string           `json:"apiKey"`
	PaymentMethod   string           `json:"paymentMethod"`
	PayerInfo       waafiPayerInfo   `json:"payerInfo"`
	TransactionInfo waafiTransaction `json:"transactionInfo"`
}

type waafiPayerInfo struct {
	AccountNo string `json:"accountNo"`
}

type waafiTransaction struct {
	ReferenceID string      `json:"referenceId"`
	InvoiceID   string      `json:"invoiceId"`
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	Description string      `json:"description"`
}

type waafiResponse struct {
	ResponseCode string `json:"responseCode"`
	ErrorCode    string `json:"errorCode"`
	ResponseMsg  string `json:"responseMsg"`
	Params       struct {
		State         string `json:"state"`
		ReferenceID   string `json:"referenceId"`
		TransactionID string `json:"transactionId"`
	} `json:"params"`
}

// WaafiClient charges EVC-Plus wallets through the WaafiPay HTTP API.
type WaafiClient struct {
	cfg    config.PaymentConfig
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewWaafiClient builds a client holding the merchant credentials from cfg.
func NewWaafiClient(cfg config.PaymentConfig, logger *zap.Logger) *WaafiClient {
	return &WaafiClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// Charge sends an API_PURCHASE request. A declined purchase is a result with
// Status false, not an error; errors mean the outcome is unknown.
func (c *WaafiClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body, err := json.Marshal(waafiRequest{
		SchemaVersion: waafiSchemaVersion,
		RequestID:     uuid.NewString(),
		Timestamp:     c.now().UTC().Format(time.RFC3339),
		ChannelName:   waafiChannel,
		ServiceName:   waafiServicePay,
		ServiceParams: waafiServiceParams{
			MerchantUID:   c.cfg.MerchantUID,
			APIUserID:     c.cfg.APIUserID,
			APIKey:        c.cfg.APIKey,
			PaymentMethod: waafiWalletMethod,
			PayerInfo:     waafiPayerInfo{AccountNo: req.Phone},
			TransactionInfo: waafiTransaction{
				ReferenceID: req.ReferenceID,
				InvoiceID:   req.ReferenceID,
				Amount:      json.Number(req.Amount.StringFixed(2)),
				Currency:    c.cfg.Currency,
				Description: req.Description,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode purchase request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build purchase request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending purchase request",
		zap.String("reference_id", req.ReferenceID),
		zap.String("amount", req.Amount.StringFixed(2)),
	)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var decoded waafiResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrGatewayUnavailable, err)
	}

	result := &ChargeResult{
		TransactionID: decoded.Params.TransactionID,
		ReferenceID:   req.ReferenceID,
	}
	if decoded.ResponseCode == waafiCodeSuccess && decoded.Params.State == waafiStateApproved {
		result.Status = true
		return result, nil
	}

	result.Error = decoded.ResponseMsg
	c.logger.Info("Purchase declined",
		zap.String("reference_id", req.ReferenceID),
		zap.String("response_code", decoded.ResponseCode),
		zap.String("error_code", decoded.ErrorCode),
	)
	return result, nil
}
