// Package saga 实现带补偿的多步事务编排
//
// 核心思想：
// 1. 将一次业务动作拆成多个本地短步骤
// 2. 每个步骤有对应的补偿操作
// 3. 某步失败时，按逆序执行已完成步骤的补偿
//
// 本项目用它编排下单流程：创建订单 → 预留库存 → 指派骑手。
// 后续步骤失败时按逆序补偿：释放预留、取消订单，
// 避免库存被悬挂占用或留下无人处理的孤儿订单。
package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
)

// Step 表示一个步骤
// Action是正向操作（如预留库存），Compensate是补偿操作（如释放预留）。
// 两者都必须幂等：补偿可能在失败重试后再次执行。
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 一次带补偿的编排
type Saga struct {
	steps    []Step
	executed []Step        // 已执行的步骤（用于补偿）
	timeout  time.Duration // 整体超时时间
}

// NewSaga 创建Saga
//
// 示例：
//
//	sg := saga.NewSaga(10 * time.Second)
//	sg.AddStep("创建订单", createOrder, cancelOrder)
//	sg.AddStep("预留库存", reserve, release)
//	err := sg.Execute(ctx)
func NewSaga(timeout time.Duration) *Saga {
	return &Saga{timeout: timeout}
}

// AddStep 添加步骤
// 步骤按添加顺序执行，按逆序补偿；Compensate可以为nil（最后一步通常无需补偿）。
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{Name: name, Action: action, Compensate: compensate})
}

// Execute 按顺序执行所有步骤
// 某步失败（或整体超时）时逆序补偿已完成的步骤，并返回失败原因。
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		select {
		case <-ctx.Done():
			// 补偿使用新Context，避免补偿本身也被同一超时打断
			s.compensate(context.Background())
			return fmt.Errorf("saga超时: %w", ctx.Err())
		default:
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(context.Background())
				return fmt.Errorf("步骤[%d:%s]执行失败: %w", i, step.Name, err)
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序执行补偿
// 某个补偿失败不会中断后续补偿（尽最大努力），失败只进日志，
// 留给人工或对账流程处理。
func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			logger.Error().Err(err).Str("step", step.Name).Msg("saga补偿失败")
		}
	}
	s.executed = nil
}
