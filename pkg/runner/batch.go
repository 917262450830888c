package runner

import (
	"example.com/HoloTools/pkg/models"
	"example.com/HoloTools/pkg/utils"
	ulog "example.com/HoloTools/utils"
)

type TaskFunc func(name string, dev models.Device) error

type Result struct {
	Name   string
	Device models.Device
	Error  error
}

// RunParallel 对一组设备并发执行任务,结果通过通道返回
// 完整读取通道即获得 join-all 语义,提前停止读取即 best-effort
func RunParallel(devices map[string]models.Device, concurrency uint, task TaskFunc) <-chan Result {
	// 单台设备的任务 panic 不应拖垮整批执行
	wp := utils.NewWorkerPool(concurrency, utils.WithPanicHandler(func(r any) {
		ulog.Logger.Error("设备任务发生panic", "panic", r)
	}))
	// 缓冲区大小设为设备数量,防止阻塞 worker
	results := make(chan Result, len(devices))
	go func() {
		for name, dev := range devices {
			wp.Execute(func() {
				err := task(name, dev)
				results <- Result{Name: name, Device: dev, Error: err}
			})
		}
		wp.Wait()
		close(results)
	}()
	return results
}

// Collect 读完整个结果通道,返回失败的结果列表
func Collect(results <-chan Result) []Result {
	var failed []Result
	for r := range results {
		if r.Error != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
