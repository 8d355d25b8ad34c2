package mts

import (
	"context"
	"errors"
	"log"
	"sync"
)

// DefaultQueueSize は Dispatcher のキュー長の既定値
const DefaultQueueSize = 256

// Task はエンジンのゴルーチン上で実行される処理
type Task func(e *Engine) error

// Dispatcher は複数のゴルーチンから届くサンプルを有限長のキューに入れ、
// 1つのゴルーチンでエンジンに渡す
type Dispatcher struct {
	engine    *Engine
	tasks     chan Task
	done      chan struct{}
	closeOnce sync.Once
}

func NewDispatcher(engine *Engine, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		engine: engine,
		tasks:  make(chan Task, queueSize),
		done:   make(chan struct{}),
	}
}

// Submit はタスクをキューに入れる。ブロックせず、満杯の場合は ErrQueueFull を返す
func (d *Dispatcher) Submit(task Task) error {
	select {
	case <-d.done:
		return ErrDispatcherClosed
	default:
	}
	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Enqueue はキューに空きができるか ctx が終了するまで待ってタスクを入れる
func (d *Dispatcher) Enqueue(ctx context.Context, task Task) error {
	select {
	case <-d.done:
		return ErrDispatcherClosed
	default:
	}
	select {
	case d.tasks <- task:
		return nil
	case <-d.done:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call はタスクをキューに入れ、実行結果を待つ。キューが満杯なら ErrQueueFull を返す
func (d *Dispatcher) Call(ctx context.Context, task Task) error {
	return d.call(ctx, task, d.Submit)
}

// CallWait は Call と同じだが、キューに空きができるまで待つ
func (d *Dispatcher) CallWait(ctx context.Context, task Task) error {
	return d.call(ctx, task, func(t Task) error { return d.Enqueue(ctx, t) })
}

func (d *Dispatcher) call(ctx context.Context, task Task, enqueue func(Task) error) error {
	result := make(chan error, 1)
	err := enqueue(func(e *Engine) error {
		err := task(e)
		result <- err
		return err
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-d.done:
		return ErrDispatcherClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run はキューの唯一の消費者として、ctx が終了するか Close されるまでタスクを実行する
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.done:
			return nil
		case task := <-d.tasks:
			d.run(task)
		}
	}
}

func (d *Dispatcher) run(task Task) {
	err := task(d.engine)
	// 破棄したサンプルはエンジンがログを出している
	if err != nil && (errors.Is(err, ErrTransport) || !IsDropped(err)) {
		log.Printf("ポインタイベントの処理に失敗しました: %v", err)
	}
}

// Close は消費者を停止させる。以降の Submit は ErrDispatcherClosed を返す
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
}
