package seccrypt

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := New([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestKeySize(t *testing.T) {
	if _, err := New([]byte("short")); err != ErrKeySize {
		t.Fatalf("err = %v, want ErrKeySize", err)
	}
}

func TestRoundTripAllSeeds(t *testing.T) {
	c := newTestCipher(t)
	seeds := []Seed{
		SeedTest, SeedLogs, SeedWriteOffCode, SeedUserPocketMoney,
		SeedUserTranRecord, SeedInviteSaleCode, SeedInviteUserCode, SeedFileLink,
	}
	plains := []string{"", "a", "100_25.00", "100,20001,1700000000", "路径 T 1700000000"}
	for _, seed := range seeds {
		for _, p := range plains {
			enc, err := c.Encrypt(p, seed)
			if err != nil {
				t.Fatalf("Encrypt(%q, %d): %v", p, seed, err)
			}
			got, err := c.Decrypt(enc, seed)
			if err != nil {
				t.Fatalf("Decrypt(%q, %d): %v", p, seed, err)
			}
			if got != p {
				t.Errorf("seed %d: round trip %q -> %q", seed, p, got)
			}
		}
	}
}

// 同一 Seed 下加密必须确定，余额防篡改标签靠重加密比对校验
func TestDeterministic(t *testing.T) {
	c := newTestCipher(t)
	a, _ := c.Encrypt("100_25.00", SeedUserPocketMoney)
	b, _ := c.Encrypt("100_25.00", SeedUserPocketMoney)
	if a != b {
		t.Errorf("同一明文两次加密结果不一致: %q vs %q", a, b)
	}
}

// 码类用途每次加密随机 nonce：同一明文两次密文不同，且不同明文
// 之间不共享密钥流（密文异或不等于明文异或）
func TestCodeSeedsRandomNonce(t *testing.T) {
	c := newTestCipher(t)
	for _, seed := range []Seed{SeedWriteOffCode, SeedInviteSaleCode, SeedInviteUserCode, SeedFileLink} {
		a, _ := c.Encrypt("100,20001,1700000000", seed)
		b, _ := c.Encrypt("100,20001,1700000000", seed)
		if a == b {
			t.Errorf("seed %d: 同一明文两次加密不应得到相同密文", seed)
		}
	}

	p1 := "100,20001,1700000000"
	p2 := "999,88888,1800000000"
	e1, _ := c.Encrypt(p1, SeedWriteOffCode)
	e2, _ := c.Encrypt(p2, SeedWriteOffCode)
	r1, _ := base64.URLEncoding.DecodeString(e1)
	r2, _ := base64.URLEncoding.DecodeString(e2)
	const nonceSize = 12
	if len(r1) < nonceSize+len(p1) || len(r2) < nonceSize+len(p2) {
		t.Fatal("密文长度异常")
	}
	if bytes.Equal(r1[:nonceSize], r2[:nonceSize]) {
		t.Fatal("两次加密 nonce 不应相同")
	}
	reused := true
	for i := 0; i < len(p1); i++ {
		if r1[nonceSize+i]^r2[nonceSize+i] != p1[i]^p2[i] {
			reused = false
			break
		}
	}
	if reused {
		t.Error("密钥流被复用：密文异或等于明文异或")
	}
}

// 不同用途的子密钥必须互相不可解
func TestSeedIsolation(t *testing.T) {
	c := newTestCipher(t)
	enc, _ := c.Encrypt("100,20001,1700000000", SeedWriteOffCode)
	if _, err := c.Decrypt(enc, SeedInviteSaleCode); err == nil {
		t.Error("跨用途解密应当失败")
	}
}

func TestTamperDetected(t *testing.T) {
	c := newTestCipher(t)
	enc, _ := c.Encrypt("100_25.00", SeedUserPocketMoney)
	bad := strings.Replace(enc, enc[:1], "x", 1)
	if bad == enc {
		bad = "y" + enc[1:]
	}
	if _, err := c.Decrypt(bad, SeedUserPocketMoney); err == nil {
		t.Error("篡改密文应当被拒绝")
	}
}

func TestURLSafe(t *testing.T) {
	c := newTestCipher(t)
	enc, _ := c.Encrypt("path/to/file T 1700000000", SeedFileLink)
	if strings.ContainsAny(enc, "+/") {
		t.Errorf("密文应为 URL 安全 base64: %q", enc)
	}
}
