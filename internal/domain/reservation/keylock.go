package reservation

import (
	"sync"
)

// keyLock 按商品ID串行化的互斥锁集合
// 最终扣减是读-改-写,同一商品的并发扣减必须排队,
// 不同商品之间互不阻塞。锁条目只增不减(商品数量有限,可接受)。
type keyLock struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[uint]*sync.Mutex)}
}

// Lock 锁定指定商品,返回解锁函数
func (k *keyLock) Lock(productID uint) func() {
	k.mu.Lock()
	l, ok := k.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		k.locks[productID] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
