package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"wxmall/internal/config"
)

const testAPIv3Key = "0123456789abcdef0123456789abcdef"

func sealResource(t *testing.T, eventType string, resource interface{}) []byte {
	t.Helper()
	plain, err := json.Marshal(resource)
	if err != nil {
		t.Fatal(err)
	}
	block, err := aes.NewCipher([]byte(testAPIv3Key))
	if err != nil {
		t.Fatal(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	nonce := "abc123def456"
	ad := "transaction"
	ct := gcm.Seal(nil, []byte(nonce), plain, []byte(ad))

	env := map[string]interface{}{
		"id":         "evt-1",
		"event_type": eventType,
		"resource": map[string]string{
			"algorithm":       "AEAD_AES_256_GCM",
			"ciphertext":      base64.StdEncoding.EncodeToString(ct),
			"nonce":           nonce,
			"associated_data": ad,
		},
	}
	body, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func testGateway() *WechatGateway {
	return &WechatGateway{cfg: &config.WechatPayConfig{APIv3Key: testAPIv3Key}}
}

func TestDecodePayNotify(t *testing.T) {
	body := sealResource(t, "TRANSACTION.SUCCESS", map[string]interface{}{
		"out_trade_no":   "65a1b2c3ff00",
		"transaction_id": "4200001234",
		"trade_state":    "SUCCESS",
		"payer":          map[string]string{"openid": "o-xyz"},
	})

	notice, err := testGateway().DecodePayNotify(body)
	if err != nil {
		t.Fatalf("DecodePayNotify: %v", err)
	}
	if notice.OutTradeNo != "65a1b2c3ff00" || notice.TransactionID != "4200001234" || notice.PayerOpenID != "o-xyz" {
		t.Errorf("通知字段不符: %+v", notice)
	}
}

func TestDecodePayNotifyWrongEvent(t *testing.T) {
	body := sealResource(t, "TRANSACTION.CLOSED", map[string]interface{}{
		"out_trade_no": "x", "trade_state": "CLOSED",
	})
	if _, err := testGateway().DecodePayNotify(body); !errors.Is(err, ErrNotifyState) {
		t.Errorf("err = %v, want ErrNotifyState", err)
	}
}

func TestDecodePayNotifyBadTradeState(t *testing.T) {
	body := sealResource(t, "TRANSACTION.SUCCESS", map[string]interface{}{
		"out_trade_no": "x", "trade_state": "PAYERROR",
	})
	if _, err := testGateway().DecodePayNotify(body); !errors.Is(err, ErrNotifyState) {
		t.Errorf("err = %v, want ErrNotifyState", err)
	}
}

func TestDecodePayNotifyTampered(t *testing.T) {
	body := sealResource(t, "TRANSACTION.SUCCESS", map[string]interface{}{
		"out_trade_no": "x", "trade_state": "SUCCESS",
	})
	// 换一把密钥解密应失败
	g := &WechatGateway{cfg: &config.WechatPayConfig{APIv3Key: "ffffffffffffffffffffffffffffffff"}}
	if _, err := g.DecodePayNotify(body); !errors.Is(err, ErrNotifyDecrypt) {
		t.Errorf("err = %v, want ErrNotifyDecrypt", err)
	}
}

func TestDecodeRefundNotify(t *testing.T) {
	body := sealResource(t, "REFUND.SUCCESS", map[string]interface{}{
		"out_trade_no":  "65a1b2c3ff00",
		"out_refund_no": "65a1b2c3ff01",
		"refund_status": "SUCCESS",
	})
	notice, err := testGateway().DecodeRefundNotify(body)
	if err != nil {
		t.Fatalf("DecodeRefundNotify: %v", err)
	}
	if notice.OutTradeNo != "65a1b2c3ff00" || notice.OutRefundNo != "65a1b2c3ff01" {
		t.Errorf("通知字段不符: %+v", notice)
	}
}
