package graphics

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/zurustar/nsbi/pkg/fileutil"
	"github.com/zurustar/nsbi/pkg/logger"
	"github.com/zurustar/nsbi/pkg/vm"
)

// OperationRecord は描画操作の記録を表す
type OperationRecord struct {
	Operation string
	Args      map[string]any
}

// Headless is a vm.Surface that keeps the draw list without drawing. Images
// are still decoded so that scripts see their real sizes.
type Headless struct {
	width, height int
	images        *ImageCache
	list          *DrawList

	log              *slog.Logger
	logOperations    bool
	recordHistory    bool
	operationHistory []OperationRecord
	historyMu        sync.RWMutex
}

// HeadlessOption は Headless のオプションを設定する関数型
type HeadlessOption func(*Headless)

// WithHeadlessLogger はロガーを設定する
func WithHeadlessLogger(log *slog.Logger) HeadlessOption {
	return func(h *Headless) {
		h.log = log
	}
}

// WithHeadlessSize は仮想画面のサイズを設定する
func WithHeadlessSize(width, height int) HeadlessOption {
	return func(h *Headless) {
		h.width = width
		h.height = height
	}
}

// WithLogOperations は描画操作のログ記録を有効/無効にする
func WithLogOperations(enabled bool) HeadlessOption {
	return func(h *Headless) {
		h.logOperations = enabled
	}
}

// WithRecordHistory は操作履歴の記録を有効/無効にする
func WithRecordHistory(enabled bool) HeadlessOption {
	return func(h *Headless) {
		h.recordHistory = enabled
	}
}

// NewHeadless creates a Headless surface loading images through fsys.
func NewHeadless(fsys fileutil.FileSystem, opts ...HeadlessOption) *Headless {
	h := &Headless{
		width:         DefaultWidth,
		height:        DefaultHeight,
		list:          NewDrawList(),
		log:           logger.GetLogger(),
		logOperations: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.images = NewImageCache(fsys, h.log)
	h.log.Info("Headless surface initialized", "width", h.width, "height", h.height)
	return h
}

func (h *Headless) logOperation(operation string, args ...any) {
	if h.logOperations {
		h.log.Debug(fmt.Sprintf("[Headless] %s", operation), args...)
	}
	if !h.recordHistory {
		return
	}
	record := OperationRecord{Operation: operation, Args: make(map[string]any)}
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			record.Args[key] = args[i+1]
		}
	}
	h.historyMu.Lock()
	h.operationHistory = append(h.operationHistory, record)
	h.historyMu.Unlock()
}

// OperationHistory は操作履歴のコピーを返す
func (h *Headless) OperationHistory() []OperationRecord {
	h.historyMu.RLock()
	defer h.historyMu.RUnlock()
	result := make([]OperationRecord, len(h.operationHistory))
	copy(result, h.operationHistory)
	return result
}

// ClearOperationHistory は操作履歴をクリアする
func (h *Headless) ClearOperationHistory() {
	h.historyMu.Lock()
	defer h.historyMu.Unlock()
	h.operationHistory = nil
}

// Size implements vm.Surface.
func (h *Headless) Size() (int, int) { return h.width, h.height }

// LoadImage implements vm.Surface.
func (h *Headless) LoadImage(name string) (image.Image, error) {
	img, err := h.images.Load(name)
	if err == nil {
		b := img.Bounds()
		h.logOperation("LoadImage", "file", name, "width", b.Dx(), "height", b.Dy())
	}
	return img, err
}

// Add implements vm.Surface.
func (h *Headless) Add(t *vm.Texture) {
	h.list.Add(t)
	x, y := t.Position()
	h.logOperation("Add", "handle", t.Handle(), "priority", t.Priority(), "x", x, "y", y)
}

// Remove implements vm.Surface.
func (h *Headless) Remove(t *vm.Texture) {
	if h.list.Remove(t) {
		h.logOperation("Remove", "handle", t.Handle())
	}
}

// DrawList returns the textures currently on screen.
func (h *Headless) DrawList() *DrawList { return h.list }
