package reservation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestKeyLock_SerializesSameKey 同一商品的操作串行,计数不丢更新
func TestKeyLock_SerializesSameKey(t *testing.T) {
	kl := newKeyLock()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock(1)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

// TestKeyLock_IndependentKeys 不同商品的锁互不阻塞
func TestKeyLock_IndependentKeys(t *testing.T) {
	kl := newKeyLock()

	unlock1 := kl.Lock(1)
	done := make(chan struct{})
	go func() {
		unlock2 := kl.Lock(2)
		unlock2()
		close(done)
	}()

	<-done // 商品1持锁期间,商品2应能顺利加锁
	unlock1()
}
