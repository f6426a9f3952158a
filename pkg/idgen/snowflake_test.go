package idgen

import (
	"strings"
	"sync"
	"testing"
)

func TestMonotonicPerStream(t *testing.T) {
	Init(1)
	var prev int64
	for i := 0; i < 10000; i++ {
		id := Next(CategoryOrderSn)
		if id <= prev {
			t.Fatalf("第 %d 个ID不递增: %d <= %d", i, id, prev)
		}
		prev = id
	}
}

func TestStreamsIndependent(t *testing.T) {
	Init(1)
	a := Next(CategoryOrderSn)
	b := Next(CategoryOutTradeNo)
	// 两条流各自从当前毫秒起步，互不共享序列号
	if a == 0 || b == 0 {
		t.Fatal("ID 不应为 0")
	}
}

func TestConcurrentUnique(t *testing.T) {
	Init(1)
	const goroutines = 8
	const perG = 2000

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perG)
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perG)
			for i := 0; i < perG; i++ {
				local = append(local, Next(CategoryOrderItem))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("重复ID: %d", id)
					return
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()
}

func TestFormats(t *testing.T) {
	Init(1)
	if sn := GenerateOrderSn(); strings.TrimLeft(sn, "0123456789") != "" {
		t.Errorf("订单号应为十进制: %q", sn)
	}
	if code := GenerateDeliveryCode(); !strings.HasPrefix(code, "D") {
		t.Errorf("配送码应带 D 前缀: %q", code)
	}
	if no := GenerateOutTradeNo(); strings.TrimLeft(no, "0123456789abcdef") != "" {
		t.Errorf("商户单号应为十六进制: %q", no)
	}
}
