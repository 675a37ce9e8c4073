package queue

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scrub/internal/entitlement"
	"scrub/internal/pipeline"
	"scrub/pkg/imgutil"
)

func newTestQueue(entitled bool) *Queue {
	gate := entitlement.NewGate(func() bool { return entitled })
	return New(gate, zerolog.Nop(), nil)
}

func pngFile(t *testing.T, name string) imgutil.SourceFile {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{B: 0xff, A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return imgutil.SourceFile{Name: name, DeclaredType: "image/png", Data: buf.Bytes()}
}

func corruptFile(name string) imgutil.SourceFile {
	return imgutil.SourceFile{Name: name, DeclaredType: "image/jpeg", Data: []byte("not pixel data at all")}
}

func bigJPEGFile(t *testing.T, name string) imgutil.SourceFile {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 8000, 6000))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 30}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return imgutil.SourceFile{Name: name, DeclaredType: "image/jpeg", Data: buf.Bytes()}
}

func TestAddFilesFiltersUnsupported(t *testing.T) {
	q := newTestQueue(true)

	res := q.AddFiles([]imgutil.SourceFile{
		pngFile(t, "ok.png"),
		{Name: "notes.txt", DeclaredType: "text/plain", Data: []byte("hi")},
	})

	if len(res.Added) != 1 || len(res.Rejected) != 1 {
		t.Fatalf("added=%d rejected=%d", len(res.Added), len(res.Rejected))
	}
	if !errors.Is(res.Rejected[0].Reason, ErrUnsupportedFormat) {
		t.Fatalf("reason = %v", res.Rejected[0].Reason)
	}
	q.WaitIdle()
}

func TestAddFilesAcceptsByExtensionAlone(t *testing.T) {
	q := newTestQueue(true)

	f := pngFile(t, "empty-type.png")
	f.DeclaredType = ""
	res := q.AddFiles([]imgutil.SourceFile{f})
	if len(res.Added) != 1 {
		t.Fatalf("file with empty declared type rejected: %#v", res.Rejected)
	}
	q.WaitIdle()
}

func TestAddFilesEntitlementLimit(t *testing.T) {
	q := newTestQueue(false)

	res := q.AddFiles([]imgutil.SourceFile{
		pngFile(t, "one.png"),
		pngFile(t, "two.png"),
	})

	if len(res.Added) != 1 {
		t.Fatalf("added = %d, want 1", len(res.Added))
	}
	if len(res.Rejected) != 1 || !errors.Is(res.Rejected[0].Reason, ErrLimitReached) {
		t.Fatalf("rejected = %#v", res.Rejected)
	}

	// A second call against a full queue is wholly rejected.
	res = q.AddFiles([]imgutil.SourceFile{pngFile(t, "three.png")})
	if len(res.Added) != 0 || len(res.Rejected) != 1 {
		t.Fatalf("second call: added=%d rejected=%d", len(res.Added), len(res.Rejected))
	}
	q.WaitIdle()
}

func TestEntitledHasNoCountLimit(t *testing.T) {
	q := newTestQueue(true)

	files := make([]imgutil.SourceFile, 0, 5)
	for _, name := range []string{"a.png", "b.png", "c.png", "d.png", "e.png"} {
		files = append(files, pngFile(t, name))
	}
	res := q.AddFiles(files)
	if len(res.Added) != 5 {
		t.Fatalf("added = %d, want 5", len(res.Added))
	}
	q.WaitIdle()
}

func TestScanProducesReports(t *testing.T) {
	q := newTestQueue(true)

	q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png"), pngFile(t, "b.png")})
	q.WaitIdle()

	for _, img := range q.Snapshot() {
		if img.State != StateScanned {
			t.Errorf("%s: state = %v, want scanned", img.Source.Name, img.State)
		}
		if img.Report == nil {
			t.Errorf("%s: missing report", img.Source.Name)
		}
	}
}

func TestScanFailsOpenOnCorruptFile(t *testing.T) {
	q := newTestQueue(true)

	q.AddFiles([]imgutil.SourceFile{corruptFile("broken.jpg")})
	q.WaitIdle()

	img := q.Snapshot()[0]
	if img.State != StateScanned {
		t.Fatalf("state = %v, want scanned (extraction fails open)", img.State)
	}
	if img.Report == nil || len(img.Report.Threats) != 0 {
		t.Fatalf("report = %#v", img.Report)
	}
}

func TestSecondBatchQueuesBehindFirst(t *testing.T) {
	q := newTestQueue(true)

	q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png")})
	q.AddFiles([]imgutil.SourceFile{pngFile(t, "b.png")})
	q.WaitIdle()

	snapshot := q.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("len = %d", len(snapshot))
	}
	for _, img := range snapshot {
		if img.State != StateScanned {
			t.Errorf("%s: state = %v", img.Source.Name, img.State)
		}
	}
}

func TestCleanAllPartialFailure(t *testing.T) {
	q := newTestQueue(true)

	q.AddFiles([]imgutil.SourceFile{
		pngFile(t, "first.png"),
		corruptFile("second.jpg"),
		pngFile(t, "third.png"),
	})
	q.WaitIdle()

	var progress [][2]int
	summary := q.CleanAll(context.Background(), func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})

	if summary.Total != 3 || summary.Cleaned != 2 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(progress) != 3 || progress[2] != [2]int{3, 3} {
		t.Fatalf("progress = %v", progress)
	}

	states := map[string]State{}
	for _, img := range q.Snapshot() {
		states[img.Source.Name] = img.State
	}
	if states["first.png"] != StateCleaned || states["third.png"] != StateCleaned {
		t.Fatalf("sibling states = %v", states)
	}
	if states["second.jpg"] != StateError {
		t.Fatalf("corrupt file state = %v, want error", states["second.jpg"])
	}

	for _, img := range q.Snapshot() {
		if img.State == StateError && img.ErrMsg == "" {
			t.Error("error state without message")
		}
		if img.State == StateCleaned && (img.Cleaned == nil || img.CleanedSize != int64(len(img.Cleaned))) {
			t.Errorf("%s: cleaned payload inconsistent", img.Source.Name)
		}
	}
}

func TestCleanAllTimeoutLandsInError(t *testing.T) {
	q := newTestQueue(true)

	q.AddFiles([]imgutil.SourceFile{
		pngFile(t, "quick.png"),
		bigJPEGFile(t, "huge.jpg"),
	})
	q.WaitIdle()

	// A millisecond budget is generous for the 2x2 sibling and hopeless
	// for a 48MP decode.
	orig := pipeline.Timeout
	pipeline.Timeout = time.Millisecond
	defer func() { pipeline.Timeout = orig }()

	summary := q.CleanAll(context.Background(), nil)
	if summary.Cleaned != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	for _, img := range q.Snapshot() {
		switch img.Source.Name {
		case "quick.png":
			if img.State != StateCleaned {
				t.Errorf("sibling state = %v, want cleaned", img.State)
			}
		case "huge.jpg":
			if img.State != StateError {
				t.Fatalf("state = %v, want error", img.State)
			}
			if img.ErrMsg != "processing took too long and was stopped" {
				t.Errorf("message = %q", img.ErrMsg)
			}
		}
	}
}

func TestCleanAllLegacyFailureLandsInError(t *testing.T) {
	q := newTestQueue(true)

	heic := imgutil.SourceFile{
		Name:         "capture.heic",
		DeclaredType: "image/heic",
		Data:         []byte("not a real heif payload"),
	}
	res := q.AddFiles([]imgutil.SourceFile{pngFile(t, "fine.png"), heic})
	if len(res.Added) != 2 {
		t.Fatalf("added = %d, rejected = %#v", len(res.Added), res.Rejected)
	}
	q.WaitIdle()

	summary := q.CleanAll(context.Background(), nil)
	if summary.Cleaned != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	for _, img := range q.Snapshot() {
		switch img.Source.Name {
		case "fine.png":
			if img.State != StateCleaned {
				t.Errorf("sibling state = %v, want cleaned", img.State)
			}
		case "capture.heic":
			if img.State != StateError {
				t.Fatalf("state = %v, want error", img.State)
			}
			if img.ErrMsg != "this runtime cannot convert HEIC/HEIF images" {
				t.Errorf("message = %q", img.ErrMsg)
			}
		}
	}
}

func TestCleanAllSkipsAlreadyCleaned(t *testing.T) {
	q := newTestQueue(true)

	q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png")})
	q.WaitIdle()

	first := q.CleanAll(context.Background(), nil)
	if first.Cleaned != 1 {
		t.Fatalf("first run: %+v", first)
	}
	second := q.CleanAll(context.Background(), nil)
	if second.Total != 0 {
		t.Fatalf("second run should find nothing: %+v", second)
	}
}

func TestNoBackwardTransitions(t *testing.T) {
	q := newTestQueue(true)

	res := q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png")})
	q.WaitIdle()
	q.CleanAll(context.Background(), nil)

	id := res.Added[0]
	if q.transition(id, StateScanning) {
		t.Fatal("cleaned entry moved backward to scanning")
	}
	img, _ := q.Get(id)
	if img.State != StateCleaned {
		t.Fatalf("state = %v", img.State)
	}
}

func TestRemoveReleasesPreview(t *testing.T) {
	q := newTestQueue(true)

	res := q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png")})
	q.WaitIdle()

	img, _ := q.Get(res.Added[0])
	preview := img.Preview
	if preview.Released() || preview.Bytes() == nil {
		t.Fatal("preview should be live while tracked")
	}

	q.Remove(res.Added[0])
	if !preview.Released() || preview.Bytes() != nil {
		t.Fatal("preview not released on removal")
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d", q.Len())
	}
}

func TestClearReleasesEverything(t *testing.T) {
	q := newTestQueue(true)

	res := q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png"), pngFile(t, "b.png")})
	q.WaitIdle()

	var previews []*Preview
	for _, id := range res.Added {
		img, _ := q.Get(id)
		previews = append(previews, img.Preview)
	}

	q.Clear()
	q.WaitIdle()

	if q.Len() != 0 {
		t.Fatalf("len = %d after clear", q.Len())
	}
	for _, p := range previews {
		if !p.Released() {
			t.Fatal("preview survived clear")
		}
	}
}

func TestUpdateDropsUnmatchedID(t *testing.T) {
	q := newTestQueue(true)
	if q.update("no-such-id", func(*TrackedImage) {}) {
		t.Fatal("update reported success for unknown id")
	}
}

func TestWriteCleaned(t *testing.T) {
	q := newTestQueue(true)
	dir := t.TempDir()

	res := q.AddFiles([]imgutil.SourceFile{pngFile(t, "photo.png")})
	q.WaitIdle()

	// Before cleaning there is nothing to write.
	path, err := q.WriteCleaned(res.Added[0], dir)
	if err != nil || path != "" {
		t.Fatalf("expected no-op, got (%q, %v)", path, err)
	}

	q.CleanAll(context.Background(), nil)

	path, err = q.WriteCleaned(res.Added[0], dir)
	if err != nil {
		t.Fatalf("WriteCleaned: %v", err)
	}
	if filepath.Base(path) != "clean_photo.png" {
		t.Fatalf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	img, _ := q.Get(res.Added[0])
	if !bytes.Equal(data, img.Cleaned) {
		t.Fatal("written payload differs from cleaned payload")
	}
}

func TestWriteArchive(t *testing.T) {
	q := newTestQueue(true)
	dir := t.TempDir()
	archive := filepath.Join(dir, ArchiveName)

	q.AddFiles([]imgutil.SourceFile{pngFile(t, "a.png"), pngFile(t, "b.png")})
	q.WaitIdle()

	// No cleaned entries yet: no-op, no file.
	n, err := q.WriteArchive(archive)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op, got (%d, %v)", n, err)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Fatal("archive created despite no cleaned entries")
	}

	q.CleanAll(context.Background(), nil)

	n, err = q.WriteArchive(archive)
	if err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	if n != 2 {
		t.Fatalf("archived %d entries, want 2", n)
	}

	zr, err := zip.OpenReader(archive)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["clean_a.png"] || !names["clean_b.png"] {
		t.Fatalf("archive entries = %v", names)
	}
}
