package saga

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestSaga_Execute_Success 测试所有步骤成功的场景
func TestSaga_Execute_Success(t *testing.T) {
	executed := make([]string, 0)

	sg := NewSaga(5 * time.Second)

	sg.AddStep("预留库存",
		func(ctx context.Context) error {
			executed = append(executed, "预留库存")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "释放预留")
			return nil
		},
	)

	sg.AddStep("创建订单",
		func(ctx context.Context) error {
			executed = append(executed, "创建订单")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "取消订单")
			return nil
		},
	)

	if err := sg.Execute(context.Background()); err != nil {
		t.Fatalf("Saga执行失败: %v", err)
	}

	if len(executed) != 2 {
		t.Errorf("期望执行2个步骤，实际执行%d个", len(executed))
	}
	if executed[0] != "预留库存" || executed[1] != "创建订单" {
		t.Errorf("执行顺序错误: %v", executed)
	}
}

// TestSaga_Execute_FailureAndCompensate 测试步骤失败触发逆序补偿
func TestSaga_Execute_FailureAndCompensate(t *testing.T) {
	executed := make([]string, 0)

	sg := NewSaga(5 * time.Second)

	sg.AddStep("预留库存",
		func(ctx context.Context) error {
			executed = append(executed, "预留库存")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "释放预留")
			return nil
		},
	)

	sg.AddStep("创建订单",
		func(ctx context.Context) error {
			executed = append(executed, "创建订单")
			return errors.New("订单写入失败")
		},
		func(ctx context.Context) error {
			executed = append(executed, "取消订单")
			return nil
		},
	)

	err := sg.Execute(context.Background())
	if err == nil {
		t.Fatal("期望Saga失败")
	}

	// 失败步骤未记入executed，只补偿之前完成的步骤
	want := []string{"预留库存", "创建订单", "释放预留"}
	if len(executed) != len(want) {
		t.Fatalf("执行轨迹错误: %v", executed)
	}
	for i := range want {
		if executed[i] != want[i] {
			t.Fatalf("执行轨迹错误: %v", executed)
		}
	}
}

// TestSaga_Execute_CompensateErrorContinues 补偿失败不中断后续补偿
func TestSaga_Execute_CompensateErrorContinues(t *testing.T) {
	executed := make([]string, 0)

	sg := NewSaga(5 * time.Second)

	sg.AddStep("步骤A",
		func(ctx context.Context) error { executed = append(executed, "A"); return nil },
		func(ctx context.Context) error { executed = append(executed, "补偿A"); return nil },
	)
	sg.AddStep("步骤B",
		func(ctx context.Context) error { executed = append(executed, "B"); return nil },
		func(ctx context.Context) error {
			executed = append(executed, "补偿B")
			return errors.New("补偿B失败")
		},
	)
	sg.AddStep("步骤C",
		func(ctx context.Context) error { return errors.New("C失败") },
		nil,
	)

	if err := sg.Execute(context.Background()); err == nil {
		t.Fatal("期望Saga失败")
	}

	// 补偿B失败后仍执行补偿A
	want := []string{"A", "B", "补偿B", "补偿A"}
	if len(executed) != len(want) {
		t.Fatalf("执行轨迹错误: %v", executed)
	}
	for i := range want {
		if executed[i] != want[i] {
			t.Fatalf("执行轨迹错误: %v", executed)
		}
	}
}
