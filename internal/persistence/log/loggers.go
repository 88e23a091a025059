package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"voxelprefab.ai/internal/sim/structure/build"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Entry is one journal line: exactly one of Progress and Completion is set.
type Entry struct {
	Kind       string            `json:"kind"` // "progress" or "complete"
	Progress   *build.Progress   `json:"progress,omitempty"`
	Completion *build.Completion `json:"completion,omitempty"`
}

// BuildLogger journals build reports as compressed JSONL. Idle progress
// (no work done, no error) is not written.
type BuildLogger struct {
	w   *JSONLZstdWriter
	log *zap.Logger
}

func NewBuildLogger(worldDir string, log *zap.Logger) *BuildLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &BuildLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "builds"), "builds"), log: log}
}

func (l *BuildLogger) BuildProgress(p build.Progress) {
	if p.Units == 0 && p.SkippedAir == 0 && p.Evicted == 0 && p.Dewatered == 0 && p.Err == "" {
		return
	}
	l.write(Entry{Kind: "progress", Progress: &p})
}

func (l *BuildLogger) BuildCompleted(c build.Completion) {
	l.write(Entry{Kind: "complete", Completion: &c})
}

func (l *BuildLogger) write(e Entry) {
	if err := l.w.Write(e); err != nil {
		l.log.Warn("build journal write failed", zap.String("kind", e.Kind), zap.Error(err))
	}
}

func (l *BuildLogger) Close() error { return l.w.Close() }

// JournalFiles lists the journal files under worldDir, oldest first.
func JournalFiles(worldDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(worldDir, "builds", "builds-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadJournal decodes every entry of one journal file.
func ReadJournal(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	jd := json.NewDecoder(dec)
	for {
		var e Entry
		if err := jd.Decode(&e); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, e)
	}
}
