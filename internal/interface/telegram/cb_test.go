package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCallbackCodec_Roundtrip 编码后可解回原动作与订单ID
func TestCallbackCodec_Roundtrip(t *testing.T) {
	codec := NewCallbackCodec("test-secret")

	data := codec.Encode(ActionDeliver, 42)
	assert.LessOrEqual(t, len(data), 64, "callback_data不能超过Telegram的64字节上限")

	action, orderID, stale, err := codec.Decode(data)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, ActionDeliver, action)
	assert.Equal(t, uint(42), orderID)
}

// TestCallbackCodec_TamperRejected 篡改订单ID后签名校验失败
func TestCallbackCodec_TamperRejected(t *testing.T) {
	codec := NewCallbackCodec("test-secret")

	data := codec.Encode(ActionDeliver, 42)
	tampered := strings.Replace(data, ".42.", ".43.", 1)

	_, _, _, err := codec.Decode(tampered)
	assert.Error(t, err)
}

// TestCallbackCodec_WrongSecret 不同密钥签出的数据互不相认
func TestCallbackCodec_WrongSecret(t *testing.T) {
	a := NewCallbackCodec("secret-a")
	b := NewCallbackCodec("secret-b")

	_, _, _, err := b.Decode(a.Encode(ActionNotIssued, 7))
	assert.Error(t, err)
}

// TestCallbackCodec_StaleVersion 旧版本按钮识别为stale
func TestCallbackCodec_StaleVersion(t *testing.T) {
	codec := NewCallbackCodec("test-secret")

	_, _, stale, err := codec.Decode("v0.dlv.42.AAAAAAAAAAA")
	assert.Error(t, err)
	assert.True(t, stale, "旧版本应提示刷新而不是按签名错误处理")
}

// TestCallbackCodec_Garbage 乱码直接拒绝
func TestCallbackCodec_Garbage(t *testing.T) {
	codec := NewCallbackCodec("test-secret")

	for _, data := range []string{"", "v1", "v1.dlv", "v1.dlv.notanumber.sig"} {
		_, _, _, err := codec.Decode(data)
		assert.Error(t, err, "输入: %q", data)
	}
}
