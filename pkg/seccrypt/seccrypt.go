package seccrypt

import (
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"math/rand"
	"sync"
)

// ============================================================================
// 本地对称加密工具
// ============================================================================
//
// 一把 32 字节主密钥派生出多个用途隔离的子密钥：
// 以用途枚举值（Seed）为随机种子，对主密钥字节做一次确定性洗牌。
// 不同用途之间密文互不可解，主密钥泄露范围之外无需管理多把密钥。
//
// 钱包防篡改标签（UserPocketMoney / UserTranRecord）依赖"重新加密
// 再比对"来校验，这两个用途下加密必须是确定性的：nonce 由子密钥
// 哈希派生，固定不变。其余用途（核销码、邀请码、文件链接）每条明文
// 都不同，nonce 每次随机生成并前置在密文里，GCM 下绝不能复用。
//
// 输出统一为 URL 安全的 base64，便于放进二维码和 URL。
// ============================================================================

// Seed 子密钥用途
type Seed int64

const (
	SeedTest Seed = iota + 1
	SeedLogs
	SeedWriteOffCode
	SeedUserPocketMoney
	SeedUserTranRecord
	SeedInviteSaleCode
	SeedInviteUserCode
	SeedFileLink
)

var (
	ErrKeySize    = errors.New("主密钥长度必须为 32 字节")
	ErrBadCipher  = errors.New("密文格式不合法")
	ErrNotInitial = errors.New("加密组件未初始化")
)

// deterministicSeed 标签类用途：同一明文必须得到同一密文才能比对校验
func deterministicSeed(seed Seed) bool {
	return seed == SeedUserPocketMoney || seed == SeedUserTranRecord
}

// Cipher 持有主密钥，子密钥按 Seed 惰性派生并缓存
type Cipher struct {
	master []byte

	mu   sync.Mutex
	subs map[Seed]cipher.AEAD
	nonc map[Seed][]byte
}

var (
	defaultCipher *Cipher
	once          sync.Once
)

// Init 初始化默认加密组件，masterKey 来自配置 local_aes_256_key
func Init(masterKey []byte) {
	once.Do(func() {
		c, err := New(masterKey)
		if err != nil {
			log.Fatalf("初始化加密组件失败: %v", err)
		}
		defaultCipher = c
	})
}

func New(masterKey []byte) (*Cipher, error) {
	if len(masterKey) != 32 {
		return nil, ErrKeySize
	}
	key := make([]byte, 32)
	copy(key, masterKey)
	return &Cipher{
		master: key,
		subs:   make(map[Seed]cipher.AEAD),
		nonc:   make(map[Seed][]byte),
	}, nil
}

// deriveKey 用 Seed 做随机种子洗牌主密钥字节，得到该用途的子密钥
func (c *Cipher) deriveKey(seed Seed) []byte {
	sub := make([]byte, 32)
	copy(sub, c.master)
	r := rand.New(rand.NewSource(int64(seed)))
	r.Shuffle(len(sub), func(i, j int) {
		sub[i], sub[j] = sub[j], sub[i]
	})
	return sub
}

func (c *Cipher) aead(seed Seed) (cipher.AEAD, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.subs[seed]; ok {
		return g, c.nonc[seed], nil
	}

	sub := c.deriveKey(seed)
	block, err := aes.NewCipher(sub)
	if err != nil {
		return nil, nil, err
	}
	g, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	// 标签用途使用的固定 nonce，由子密钥哈希派生（保证加密可确定性比对）
	sum := sha256.Sum256(sub)
	nonce := make([]byte, g.NonceSize())
	copy(nonce, sum[:])

	c.subs[seed] = g
	c.nonc[seed] = nonce
	return g, nonce, nil
}

// Encrypt 加密短字符串，输出 URL 安全 base64
// 标签用途走固定 nonce，其余用途随机 nonce 并前置在密文中
func (c *Cipher) Encrypt(plain string, seed Seed) (string, error) {
	g, fixed, err := c.aead(seed)
	if err != nil {
		return "", err
	}
	if deterministicSeed(seed) {
		out := g.Seal(nil, fixed, []byte(plain), nil)
		return base64.URLEncoding.EncodeToString(out), nil
	}
	nonce := make([]byte, g.NonceSize())
	if _, err := io.ReadFull(crand.Reader, nonce); err != nil {
		return "", err
	}
	out := g.Seal(nonce, nonce, []byte(plain), nil)
	return base64.URLEncoding.EncodeToString(out), nil
}

// Decrypt 解密 Encrypt 的输出；密文被篡改或用途不符时返回错误
func (c *Cipher) Decrypt(enc string, seed Seed) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(enc)
	if err != nil {
		return "", ErrBadCipher
	}
	g, fixed, err := c.aead(seed)
	if err != nil {
		return "", err
	}
	if deterministicSeed(seed) {
		plain, err := g.Open(nil, fixed, raw, nil)
		if err != nil {
			return "", ErrBadCipher
		}
		return string(plain), nil
	}
	if len(raw) < g.NonceSize() {
		return "", ErrBadCipher
	}
	plain, err := g.Open(nil, raw[:g.NonceSize()], raw[g.NonceSize():], nil)
	if err != nil {
		return "", ErrBadCipher
	}
	return string(plain), nil
}

// Encrypt 用默认组件加密
func Encrypt(plain string, seed Seed) (string, error) {
	if defaultCipher == nil {
		return "", ErrNotInitial
	}
	return defaultCipher.Encrypt(plain, seed)
}

// Decrypt 用默认组件解密
func Decrypt(enc string, seed Seed) (string, error) {
	if defaultCipher == nil {
		return "", ErrNotInitial
	}
	return defaultCipher.Decrypt(enc, seed)
}
