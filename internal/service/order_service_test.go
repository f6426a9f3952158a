package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"wxmall/internal/model"
)

func TestItemDescriptionShortUnchanged(t *testing.T) {
	items := []*model.OrderItem{
		{UnitName: "通用商品 大杯"},
		{UnitName: "通用商品 小杯"},
	}
	got := itemDescription(items)
	if got != "通用商品 大杯,通用商品 小杯" {
		t.Errorf("desc = %q", got)
	}
}

// 支付描述限长按字节计，多字节商品名截断后必须仍是合法 UTF-8
func TestItemDescriptionTruncatesByBytes(t *testing.T) {
	items := []*model.OrderItem{
		{UnitName: strings.Repeat("烤", 50)}, // 150 字节
	}
	got := itemDescription(items)
	if len(got) > 127 {
		t.Errorf("desc 长度 %d 字节，超过 127", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("截断后不是合法 UTF-8: %q", got)
	}
	// 127 落在三字节字符中间，截断点要退回到 126
	if len(got) != 126 {
		t.Errorf("desc 长度 = %d, want 126", len(got))
	}
}

func TestItemDescriptionExactLimit(t *testing.T) {
	items := []*model.OrderItem{{UnitName: strings.Repeat("a", 127)}}
	if got := itemDescription(items); len(got) != 127 {
		t.Errorf("desc 长度 = %d, want 127", len(got))
	}
}
