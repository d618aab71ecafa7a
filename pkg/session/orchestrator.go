package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/generator"
	"github.com/shouni/vibe-wallpaper/pkg/imgutil"
)

var (
	ErrBusy          = errors.New("a generation is already in progress")
	ErrNoSelection   = errors.New("no image is selected")
	ErrImageNotFound = errors.New("image not found in the current batch")
)

const (
	downloadPrefixRunes = 20
	downloadSuffix      = "_wallpaper.jpeg"
)

// 呼び出し種別。Recorder に渡されます。
const (
	OpGenerate = "generate"
	OpRefine   = "refine"
)

// Recorder はリモート呼び出しの計測先です。
type Recorder interface {
	ObserveCall(op, outcome string, elapsed time.Duration)
	SetInFlight(busy bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCall(string, string, time.Duration) {}
func (nopRecorder) SetInFlight(bool)                          {}

// Option は Orchestrator の任意設定です。
type Option func(*Orchestrator)

// WithRecorder は計測先を設定します。
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithInitialState は初期状態を差し替えます。
func WithInitialState(s State) Option {
	return func(o *Orchestrator) { o.state = s.Clone() }
}

// Task は受理された生成チェーン 1 回分です。
type Task struct {
	done chan struct{}
}

// Done はチェーンの完了時に閉じられます。
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait はチェーンの完了を待ちます。
func (t *Task) Wait() { <-t.done }

// Export はダウンロード用に書き出す画像です。
type Export struct {
	Filename string
	MimeType string
	Data     []byte
}

// Orchestrator は State を唯一所有し、Reduce が返した Effect を順に実行します。
// 同時に走るチェーンは高々 1 つです。
type Orchestrator struct {
	images   generator.ImageGenerator
	remixer  generator.RemixPrompter
	recorder Recorder

	mu        sync.Mutex
	state     State
	listeners map[int]func(State)
	nextID    int

	// notifyMu は通知の順序を遷移の順序に揃えるためのロックです。
	notifyMu sync.Mutex
}

// New は Orchestrator を初期化します。
func New(images generator.ImageGenerator, remixer generator.RemixPrompter, opts ...Option) (*Orchestrator, error) {
	if images == nil {
		return nil, fmt.Errorf("images (ImageGenerator) is required")
	}
	if remixer == nil {
		return nil, fmt.Errorf("remixer (RemixPrompter) is required")
	}
	o := &Orchestrator{
		images:    images,
		remixer:   remixer,
		recorder:  nopRecorder{},
		state:     NewState(),
		listeners: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State は現在の状態のスナップショットを返します。
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Subscribe は状態変化の通知先を登録し、解除関数を返します。
// fn は遷移順に同期的に呼ばれるため、中で Orchestrator の変更系メソッドを呼んではいけません。
func (o *Orchestrator) Subscribe(fn func(State)) (unsubscribe func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.listeners, id)
			o.mu.Unlock()
		})
	}
}

// SetPrompt はフォームのプロンプトを更新します。生成中は無視され ErrBusy を返します。
func (o *Orchestrator) SetPrompt(prompt string) error {
	if o.State().IsGenerating {
		return ErrBusy
	}
	o.dispatch(PromptChanged{Prompt: prompt})
	return nil
}

// SetAspectRatio はフォームの縦横比を更新します。
func (o *Orchestrator) SetAspectRatio(ar domain.AspectRatio) error {
	if !ar.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAspectRatio, ar)
	}
	if o.State().IsGenerating {
		return ErrBusy
	}
	o.dispatch(AspectRatioChanged{AspectRatio: ar})
	return nil
}

// Submit は生成を開始します。ガードに失敗した場合は何もせず nil を返します。
// ctx のキャンセルはチェーンに伝播しません。
func (o *Orchestrator) Submit(ctx context.Context, prompt string, ar domain.AspectRatio) *Task {
	eff := o.dispatch(Submitted{Prompt: prompt, AspectRatio: ar})
	if eff == nil {
		return nil
	}
	return o.start(ctx, eff)
}

// SelectImage は現在のバッチから id の画像をプレビュー対象にします。
func (o *Orchestrator) SelectImage(id string) error {
	s := o.State()
	if s.IsGenerating {
		return ErrBusy
	}
	if _, ok := s.FindImage(id); !ok {
		return fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	o.dispatch(ImageSelected{ID: id})
	return nil
}

// ClosePreview はプレビューを閉じます。
func (o *Orchestrator) ClosePreview() {
	o.dispatch(PreviewClosed{})
}

// Remix は選択中の画像からリミックスを開始します。ガードに失敗した場合は nil を返します。
func (o *Orchestrator) Remix(ctx context.Context) *Task {
	eff := o.dispatch(RemixRequested{})
	if eff == nil {
		return nil
	}
	return o.start(ctx, eff)
}

// Download は選択中の画像を JPEG として書き出します。状態は変更しません。
func (o *Orchestrator) Download() (*Export, error) {
	s := o.State()
	if s.Selected == nil {
		return nil, ErrNoSelection
	}
	data, err := imgutil.EnsureJPEG(s.Selected.Data, s.Selected.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to export image: %w", err)
	}
	return &Export{
		Filename: DownloadFilename(s.Prompt),
		MimeType: domain.DefaultMimeType,
		Data:     data,
	}, nil
}

// DownloadFilename はプロンプトの先頭 20 文字の空白を "_" に置き換えたファイル名を返します。
func DownloadFilename(prompt string) string {
	r := []rune(prompt)
	if len(r) > downloadPrefixRunes {
		r = r[:downloadPrefixRunes]
	}
	name := strings.Map(func(c rune) rune {
		if unicode.IsSpace(c) {
			return '_'
		}
		return c
	}, string(r))
	return name + downloadSuffix
}

// dispatch は ev を適用し、変化があれば購読者へ通知します。
func (o *Orchestrator) dispatch(ev Event) Effect {
	o.mu.Lock()
	prev := o.state
	next, eff := Reduce(prev, ev)
	o.state = next
	changed := !prev.sameAs(next)
	var snapshot State
	var listeners []func(State)
	if changed {
		snapshot = next.Clone()
		listeners = make([]func(State), 0, len(o.listeners))
		for _, fn := range o.listeners {
			listeners = append(listeners, fn)
		}
	}
	o.notifyMu.Lock()
	o.mu.Unlock()
	defer o.notifyMu.Unlock()

	if prev.IsGenerating != next.IsGenerating {
		o.recorder.SetInFlight(next.IsGenerating)
	}
	for _, fn := range listeners {
		fn(snapshot)
	}
	return eff
}

func (o *Orchestrator) start(ctx context.Context, eff Effect) *Task {
	task := &Task{done: make(chan struct{})}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer close(task.done)
		for eff != nil {
			eff = o.dispatch(o.perform(ctx, eff))
		}
	}()
	return task
}

// perform は Effect を実行し、結果をイベントとして返します。パニックも失敗イベントに変換します。
func (o *Orchestrator) perform(ctx context.Context, eff Effect) (ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "生成タスクでパニックが発生しました", "panic", r)
			ev = panicEvent(eff, r)
		}
	}()

	switch e := eff.(type) {
	case GenerateEffect:
		started := time.Now()
		images, err := o.images.GenerateImages(ctx, e.Prompt, e.AspectRatio)
		o.recorder.ObserveCall(OpGenerate, outcomeOf(err), time.Since(started))
		if err != nil {
			return GenerationFailed{Err: err}
		}
		return GenerationSucceeded{Images: images}

	case RefineEffect:
		started := time.Now()
		prompt, err := o.remixer.GenerateRemixPrompt(ctx, e.Prompt, e.Image)
		o.recorder.ObserveCall(OpRefine, outcomeOf(err), time.Since(started))
		if err != nil {
			return RemixFailed{Err: err}
		}
		slog.InfoContext(ctx, "リミックス用プロンプトを受け取りました", "prompt", prompt)
		return RemixPromptReady{Prompt: prompt, AspectRatio: e.AspectRatio}
	}
	return GenerationFailed{Err: fmt.Errorf("unknown effect %T", eff)}
}

func panicEvent(eff Effect, r any) Event {
	cause := fmt.Errorf("panic: %v", r)
	if _, ok := eff.(RefineEffect); ok {
		return RemixFailed{Err: domain.NewError(domain.KindServiceUnavailable, domain.MsgRemixServiceFailed, cause)}
	}
	return GenerationFailed{Err: domain.NewError(domain.KindServiceUnavailable, domain.MsgImageServiceFailed, cause)}
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(domain.KindOf(err))
}
