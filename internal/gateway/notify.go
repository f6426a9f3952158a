package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// 回调通知解密与校验
//
// 网关投递的是加密信封：resource.ciphertext 用 APIv3 密钥做
// AES-256-GCM 解密（nonce、associated_data 随信封给出）。
// 解出后校验事件类型与交易状态，再交给编排层做幂等落库。

var (
	ErrNotifyDecrypt = errors.New("回调通知解密失败")
	ErrNotifyState   = errors.New("回调通知状态不符")
)

// PaidNotice 支付成功通知
type PaidNotice struct {
	OutTradeNo    string
	TransactionID string
	PayerOpenID   string
}

// RefundNotice 退款成功通知
type RefundNotice struct {
	OutTradeNo  string
	OutRefundNo string
}

type notifyEnvelope struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		Algorithm      string `json:"algorithm"`
		Ciphertext     string `json:"ciphertext"`
		Nonce          string `json:"nonce"`
		AssociatedData string `json:"associated_data"`
	} `json:"resource"`
}

// decryptResource 用 APIv3 密钥解开信封里的密文
func decryptResource(apiV3Key string, env *notifyEnvelope) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(env.Resource.Ciphertext)
	if err != nil {
		return nil, ErrNotifyDecrypt
	}
	block, err := aes.NewCipher([]byte(apiV3Key))
	if err != nil {
		return nil, fmt.Errorf("%w: APIv3 密钥不合法", ErrNotifyDecrypt)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrNotifyDecrypt
	}
	plain, err := gcm.Open(nil,
		[]byte(env.Resource.Nonce),
		raw,
		[]byte(env.Resource.AssociatedData),
	)
	if err != nil {
		return nil, ErrNotifyDecrypt
	}
	return plain, nil
}

// DecodePayNotify 解出支付成功通知
// 事件类型必须是 TRANSACTION.SUCCESS 且 trade_state 为 SUCCESS
func (g *WechatGateway) DecodePayNotify(body []byte) (*PaidNotice, error) {
	var env notifyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrNotifyDecrypt
	}
	if env.EventType != "TRANSACTION.SUCCESS" {
		return nil, fmt.Errorf("%w: event_type=%s", ErrNotifyState, env.EventType)
	}

	plain, err := decryptResource(g.cfg.APIv3Key, &env)
	if err != nil {
		return nil, err
	}

	var tx struct {
		OutTradeNo    string `json:"out_trade_no"`
		TransactionID string `json:"transaction_id"`
		TradeState    string `json:"trade_state"`
		Payer         struct {
			OpenID string `json:"openid"`
		} `json:"payer"`
	}
	if err := json.Unmarshal(plain, &tx); err != nil {
		return nil, ErrNotifyDecrypt
	}
	if tx.TradeState != "SUCCESS" {
		return nil, fmt.Errorf("%w: trade_state=%s", ErrNotifyState, tx.TradeState)
	}

	return &PaidNotice{
		OutTradeNo:    tx.OutTradeNo,
		TransactionID: tx.TransactionID,
		PayerOpenID:   tx.Payer.OpenID,
	}, nil
}

// DecodeRefundNotify 解出退款成功通知
func (g *WechatGateway) DecodeRefundNotify(body []byte) (*RefundNotice, error) {
	var env notifyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrNotifyDecrypt
	}
	if env.EventType != "REFUND.SUCCESS" {
		return nil, fmt.Errorf("%w: event_type=%s", ErrNotifyState, env.EventType)
	}

	plain, err := decryptResource(g.cfg.APIv3Key, &env)
	if err != nil {
		return nil, err
	}

	var rf struct {
		OutTradeNo   string `json:"out_trade_no"`
		OutRefundNo  string `json:"out_refund_no"`
		RefundStatus string `json:"refund_status"`
	}
	if err := json.Unmarshal(plain, &rf); err != nil {
		return nil, ErrNotifyDecrypt
	}
	if rf.RefundStatus != "SUCCESS" {
		return nil, fmt.Errorf("%w: refund_status=%s", ErrNotifyState, rf.RefundStatus)
	}

	return &RefundNotice{
		OutTradeNo:  rf.OutTradeNo,
		OutRefundNo: rf.OutRefundNo,
	}, nil
}
