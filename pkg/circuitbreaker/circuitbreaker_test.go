package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker("test", Config{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// TestCircuitBreaker_TripOnConsecutiveFailures 连续失败达到阈值后熔断
func TestCircuitBreaker_TripOnConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("第%d次调用应返回业务错误, got %v", i+1, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("连续3次失败后应为OPEN, got %s", cb.State())
	}

	// 熔断期间请求不触发业务函数，直接快速失败
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpenState) {
		t.Fatalf("熔断期间应返回ErrOpenState, got %v", err)
	}
	if called {
		t.Fatal("熔断期间不应执行业务函数")
	}
}

// TestCircuitBreaker_SuccessResetsFailureStreak 成功调用重置连续失败计数
func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return errBoom })

	if cb.State() != StateClosed {
		t.Fatalf("未达到连续失败阈值，应保持CLOSED, got %s", cb.State())
	}
}

// TestCircuitBreaker_HalfOpenRecovery 超时后半开，探测成功则恢复
func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	if cb.State() != StateOpen {
		t.Fatalf("应为OPEN, got %s", cb.State())
	}

	// 等待熔断超时，进入半开
	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("超时后应为HALF_OPEN, got %s", cb.State())
	}

	// MaxRequests=2，两次探测成功后恢复
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("半开探测应放行, got %v", err)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("半开第二次探测应放行, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("探测全部成功后应恢复CLOSED, got %s", cb.State())
	}
}

// TestCircuitBreaker_HalfOpenFailureReopens 半开探测失败立刻回到熔断
func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}
	time.Sleep(30 * time.Millisecond)

	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatalf("半开失败后应回到OPEN, got %s", cb.State())
	}
}

// TestCircuitBreaker_StateChangeCallback 状态切换触发回调
func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	var transitions []string
	cb.SetStateChangeCallback(func(name string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBoom })
	}

	if len(transitions) != 1 || transitions[0] != "CLOSED->OPEN" {
		t.Fatalf("期望一次CLOSED->OPEN切换, got %v", transitions)
	}
}
