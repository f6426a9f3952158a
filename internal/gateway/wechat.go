package gateway

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"wxmall/internal/config"

	"github.com/google/uuid"
)

// ============================================================================
// 微信支付 v3 网关适配器
// ============================================================================
//
// 对核心只暴露三件事：发起 JSAPI 预支付、发起退款、解出回调通知。
// 请求用商户私钥 RSA-SHA256 签名；回调信封用 APIv3 密钥 AES-GCM
// 解密（见 notify.go）。
//
// 网关调用必须在数据库事务提交之后发起，不允许占着行锁等外部 HTTP。
// ============================================================================

const apiBase = "https://api.mch.weixin.qq.com"

var ErrGateway = errors.New("支付网关调用失败")

// PrepayParams 返回给小程序端拉起支付的参数
type PrepayParams struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// Gateway 支付网关契约
type Gateway interface {
	// InitiateJsapi 发起 JSAPI 预支付，totalCents 为整数分
	InitiateJsapi(ctx context.Context, description, outTradeNo string, totalCents int64, payerOpenID string) (*PrepayParams, error)
	// Refund 发起退款
	Refund(ctx context.Context, outTradeNo, outRefundNo string, totalCents, refundCents int64) error
	// DecodePayNotify 解出支付成功通知
	DecodePayNotify(body []byte) (*PaidNotice, error)
	// DecodeRefundNotify 解出退款成功通知
	DecodeRefundNotify(body []byte) (*RefundNotice, error)
}

// WechatGateway 微信支付 v3 实现
type WechatGateway struct {
	cfg        *config.WechatPayConfig
	privateKey *rsa.PrivateKey
	client     *http.Client
}

// NewWechatGateway 创建网关适配器，加载商户私钥
func NewWechatGateway(cfg *config.WechatPayConfig) (*WechatGateway, error) {
	raw, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("读取商户私钥失败: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("商户私钥 PEM 解析失败")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("商户私钥解析失败: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("商户私钥不是 RSA 私钥")
	}
	return &WechatGateway{
		cfg:        cfg,
		privateKey: rsaKey,
		// 网关超时约束事务外等待时长
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (g *WechatGateway) sign(message string) (string, error) {
	sum := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPKCS1v15(rand.Reader, g.privateKey, crypto.SHA256, sum[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// authorization 构造 v3 请求签名头
func (g *WechatGateway) authorization(method, path string, body []byte) (string, error) {
	nonce := uuid.NewString()
	ts := fmt.Sprintf("%d", time.Now().Unix())
	message := fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n", method, path, ts, nonce, string(body))
	sig, err := g.sign(message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`WECHATPAY2-SHA256-RSA2048 mchid="%s",nonce_str="%s",signature="%s",timestamp="%s",serial_no="%s"`,
		g.cfg.MchID, nonce, sig, ts, g.cfg.SerialNo,
	), nil
}

func (g *WechatGateway) post(ctx context.Context, path string, reqBody interface{}, out interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	auth, err := g.authorization(http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("%w: 请求签名失败: %v", ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", auth)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Gateway] 微信支付返回异常: status=%d body=%s", resp.StatusCode, respBody)
		return fmt.Errorf("%w: status=%d", ErrGateway, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%w: 响应解析失败: %v", ErrGateway, err)
		}
	}
	return nil
}

// InitiateJsapi 发起 JSAPI 预支付并生成客户端调起参数
func (g *WechatGateway) InitiateJsapi(ctx context.Context, description, outTradeNo string, totalCents int64, payerOpenID string) (*PrepayParams, error) {
	reqBody := map[string]interface{}{
		"appid":        g.cfg.AppID,
		"mchid":        g.cfg.MchID,
		"description":  description,
		"out_trade_no": outTradeNo,
		"notify_url":   g.cfg.PayNotifyURL,
		"amount": map[string]interface{}{
			"total":    totalCents,
			"currency": "CNY",
		},
		"payer": map[string]interface{}{
			"openid": payerOpenID,
		},
	}

	var result struct {
		PrepayID string `json:"prepay_id"`
	}
	if err := g.post(ctx, "/v3/pay/transactions/jsapi", reqBody, &result); err != nil {
		return nil, err
	}
	if result.PrepayID == "" {
		return nil, fmt.Errorf("%w: 预支付单号为空", ErrGateway)
	}

	// 客户端调起支付的二次签名
	ts := fmt.Sprintf("%d", time.Now().Unix())
	nonce := uuid.NewString()
	pkg := "prepay_id=" + result.PrepayID
	paySign, err := g.sign(fmt.Sprintf("%s\n%s\n%s\n%s\n", g.cfg.AppID, ts, nonce, pkg))
	if err != nil {
		return nil, fmt.Errorf("%w: 调起签名失败: %v", ErrGateway, err)
	}

	return &PrepayParams{
		AppID:     g.cfg.AppID,
		TimeStamp: ts,
		NonceStr:  nonce,
		Package:   pkg,
		SignType:  "RSA",
		PaySign:   paySign,
	}, nil
}

// Refund 发起退款，成功与否以退款回调为准
func (g *WechatGateway) Refund(ctx context.Context, outTradeNo, outRefundNo string, totalCents, refundCents int64) error {
	reqBody := map[string]interface{}{
		"out_trade_no":  outTradeNo,
		"out_refund_no": outRefundNo,
		"notify_url":    g.cfg.RefundNotifyURL,
		"amount": map[string]interface{}{
			"refund":   refundCents,
			"total":    totalCents,
			"currency": "CNY",
		},
	}
	return g.post(ctx, "/v3/refund/domestic/refunds", reqBody, nil)
}
