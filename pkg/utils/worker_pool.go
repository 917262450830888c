package utils

import "sync"

// WorkerPool 限制并发执行的任务数量
// 批量设备操作通过它控制同时打开的连接数
type WorkerPool interface {
	Execute(task func())
	Wait()
}

type defaultWorkerPool struct {
	slots        chan struct{}
	wg           sync.WaitGroup
	panicHandler func(any)
}

type Option func(*defaultWorkerPool)

// WithPanicHandler 自定义任务 panic 的处理逻辑
// 未设置时 panic 会向上传播
func WithPanicHandler(handler func(any)) Option {
	return func(wp *defaultWorkerPool) {
		wp.panicHandler = handler
	}
}

func NewWorkerPool(maxConcurrent uint, options ...Option) WorkerPool {
	if maxConcurrent == 0 {
		maxConcurrent = 5
	}
	wp := &defaultWorkerPool{
		slots: make(chan struct{}, maxConcurrent),
	}
	for _, option := range options {
		option(wp)
	}
	return wp
}

// Execute 提交一个任务,许可耗尽时任务在 goroutine 中排队等待
func (wp *defaultWorkerPool) Execute(task func()) {
	wp.wg.Go(func() {
		wp.slots <- struct{}{}
		defer func() { <-wp.slots }()
		if wp.panicHandler != nil {
			defer func() {
				if r := recover(); r != nil {
					wp.panicHandler(r)
				}
			}()
		}
		task()
	})
}

// Wait 阻塞直到所有已提交的任务结束
func (wp *defaultWorkerPool) Wait() {
	wp.wg.Wait()
}
