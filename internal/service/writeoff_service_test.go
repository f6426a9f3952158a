package service

import (
	"fmt"
	"testing"
	"time"

	"wxmall/pkg/errs"
	"wxmall/pkg/seccrypt"
)

func initTestCrypto(t *testing.T) {
	t.Helper()
	seccrypt.Init([]byte("0123456789abcdef0123456789abcdef"))
}

func TestParseWriteOffCodeRoundTrip(t *testing.T) {
	initTestCrypto(t)

	expire := time.Now().Add(5 * time.Minute).Unix()
	code, err := seccrypt.Encrypt(fmt.Sprintf("%d,%s,%d", int64(100), "20001", expire), seccrypt.SeedWriteOffCode)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	uid, itemID, err := parseWriteOffCode(code)
	if err != nil {
		t.Fatalf("parseWriteOffCode: %v", err)
	}
	if uid != 100 || itemID != "20001" {
		t.Errorf("got (%d, %s), want (100, 20001)", uid, itemID)
	}
}

func TestParseWriteOffCodeExpired(t *testing.T) {
	initTestCrypto(t)

	expire := time.Now().Add(-time.Minute).Unix()
	code, err := seccrypt.Encrypt(fmt.Sprintf("100,20001,%d", expire), seccrypt.SeedWriteOffCode)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	_, _, err = parseWriteOffCode(code)
	if errs.KindOf(err) != errs.KindExpired {
		t.Errorf("kind = %v, want Expired", errs.KindOf(err))
	}
}

func TestParseWriteOffCodeGarbage(t *testing.T) {
	initTestCrypto(t)

	tests := []string{
		"not-a-code",
		"",
	}
	for _, code := range tests {
		if _, _, err := parseWriteOffCode(code); errs.KindOf(err) != errs.KindBadRequest {
			t.Errorf("parseWriteOffCode(%q): kind = %v, want BadRequest", code, errs.KindOf(err))
		}
	}
}

func TestParseWriteOffCodeWrongSeed(t *testing.T) {
	initTestCrypto(t)

	// 用邀请码的子密钥加密的载荷不能当核销码用
	expire := time.Now().Add(5 * time.Minute).Unix()
	code, err := seccrypt.Encrypt(fmt.Sprintf("100,20001,%d", expire), seccrypt.SeedInviteSaleCode)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, _, err := parseWriteOffCode(code); errs.KindOf(err) != errs.KindBadRequest {
		t.Errorf("kind = %v, want BadRequest", errs.KindOf(err))
	}
}

func TestParseInviteCode(t *testing.T) {
	initTestCrypto(t)

	expire := time.Now().Add(time.Hour).Unix()
	code, err := seccrypt.Encrypt(fmt.Sprintf("7,%d", expire), seccrypt.SeedInviteUserCode)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	uid, err := parseInviteCode(code, seccrypt.SeedInviteUserCode)
	if err != nil {
		t.Fatalf("parseInviteCode: %v", err)
	}
	if uid != 7 {
		t.Errorf("uid = %d, want 7", uid)
	}

	// 过期
	code, _ = seccrypt.Encrypt(fmt.Sprintf("7,%d", time.Now().Add(-time.Hour).Unix()), seccrypt.SeedInviteUserCode)
	if _, err := parseInviteCode(code, seccrypt.SeedInviteUserCode); errs.KindOf(err) != errs.KindExpired {
		t.Errorf("kind = %v, want Expired", errs.KindOf(err))
	}
}
