package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"docinsight-backend/service/metrics"
)

var (
	ErrQueueFull      = errors.New("processing queue is full")
	ErrAlreadyRunning = errors.New("document is already being processed")
	ErrPoolClosed     = errors.New("processing pool is closed")
)

// Runner 执行单个处理任务
type Runner interface {
	Run(ctx context.Context, task Task) error
}

// Handle 已提交任务的句柄，可等待结果或取消
type Handle struct {
	Task Task

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done 任务结束后关闭
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err 任务结束前返回 nil
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait 等待任务结束，ctx 结束时返回 ctx 的错误，不会取消任务
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel 取消任务，排队中的任务不会再执行
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) finish(err error) {
	h.err = err
	h.cancel()
	close(h.done)
}

// Pool 固定数量的 worker 从队列中取任务执行，同一文档同时只允许一个任务
type Pool struct {
	runner    Runner
	workerNum int
	taskChan  chan *Handle

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*Handle
	closed   bool
	started  bool
}

func NewPool(runner Runner, workerNum, queueSize int) *Pool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		runner:    runner,
		workerNum: workerNum,
		taskChan:  make(chan *Handle, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		inflight:  make(map[string]*Handle),
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 1; i <= p.workerNum; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
}

// Submit 非阻塞提交任务，队列满时返回 ErrQueueFull
func (p *Pool) Submit(task Task) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if _, ok := p.inflight[task.DocumentID]; ok {
		return nil, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(p.ctx)
	h := &Handle{
		Task:   task,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	select {
	case p.taskChan <- h:
	default:
		cancel()
		return nil, ErrQueueFull
	}

	p.inflight[task.DocumentID] = h
	metrics.QueueLength.Inc()
	return h, nil
}

// Schedule 提交任务但不关心结果
func (p *Pool) Schedule(_ context.Context, task Task) error {
	_, err := p.Submit(task)
	if err != nil {
		return fmt.Errorf("failed to schedule document %s: %w", task.DocumentID, err)
	}
	return nil
}

// Get 返回文档正在排队或执行中的任务
func (p *Pool) Get(documentID string) (*Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.inflight[documentID]
	return h, ok
}

// Cancel 取消文档的任务，没有进行中的任务时返回 false
func (p *Pool) Cancel(documentID string) bool {
	h, ok := p.Get(documentID)
	if !ok {
		return false
	}
	h.Cancel()
	return true
}

// Shutdown 停止接收任务并取消所有任务，等待 worker 退出或 ctx 结束
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cancel()
		close(p.taskChan)
	}
	started := p.started
	p.mu.Unlock()

	if !started {
		// 没有 worker 时直接结束排队中的任务
		for h := range p.taskChan {
			metrics.QueueLength.Dec()
			p.complete(h, context.Canceled)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	slog.Info("Starting processing worker", "worker_id", id)
	defer slog.Info("Processing worker exit", "worker_id", id)

	for h := range p.taskChan {
		metrics.QueueLength.Dec()
		p.complete(h, p.execute(h))
	}
}

// execute 已取消的任务仍交给 runner，由其记录失败状态
func (p *Pool) execute(h *Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing document %s: %v", h.Task.DocumentID, r)
			slog.Error("Processing worker recovered from panic", "document_id", h.Task.DocumentID, "panic", r)
		}
	}()

	return p.runner.Run(h.ctx, h.Task)
}

func (p *Pool) complete(h *Handle, err error) {
	p.mu.Lock()
	if p.inflight[h.Task.DocumentID] == h {
		delete(p.inflight, h.Task.DocumentID)
	}
	p.mu.Unlock()

	h.finish(err)
}
