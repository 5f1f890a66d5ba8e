// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestWAV records n counting samples to a new file and returns its path.
func writeTestWAV(t *testing.T, n int) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "input.wav")
	r := NewRecorder(testSampleRate, 0)
	if err := r.Start(filename); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := r.WriteChunks(testChunks(n)); err != nil {
		t.Fatalf("WriteChunks error: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	return filename
}

func waitDone(t *testing.T, src *FileSource) {
	t.Helper()
	select {
	case <-src.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("file source did not finish")
	}
}

func TestFileSourceDeliversAll(t *testing.T) {
	filename := writeTestWAV(t, 3000)
	q := NewQueue()
	level := NewLevelMeter(0)
	src := NewFileSource(filename, 256, false, q, level)

	if err := src.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	waitDone(t, src)
	defer src.Close()

	if src.SampleRate() != testSampleRate {
		t.Errorf("SampleRate() = %f, want %d", src.SampleRate(), testSampleRate)
	}
	if src.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", src.State())
	}

	data := q.Read()
	if data.Size() != 3000 {
		t.Fatalf("delivered %d samples, want 3000", data.Size())
	}
	if data.Len() != 12 { // 11 full blocks of 256 and one of 184.
		t.Errorf("delivered %d blocks, want 12", data.Len())
	}
	for _, i := range []int{0, 255, 256, 2999} {
		if v, _ := data.At(i); int(v) != i {
			t.Errorf("At(%d) = %d, want %d", i, v, i)
		}
	}
	if level.Take() <= 0 {
		t.Error("level meter saw no signal")
	}
}

func TestFileSourcePacedClose(t *testing.T) {
	// Five seconds of audio, closed long before the end.
	filename := writeTestWAV(t, testSampleRate*5)
	q := NewQueue()
	src := NewFileSource(filename, 512, true, q, nil)

	if err := src.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if src.State() != StateReady {
		t.Errorf("State() = %v, want ready", src.State())
	}
	time.Sleep(50 * time.Millisecond)
	if err := src.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	waitDone(t, src)

	if got := q.Read().Size(); got == 0 || got >= testSampleRate*5 {
		t.Errorf("delivered %d samples, want a real-time prefix", got)
	}
	if src.State() != StateTerminated {
		t.Errorf("State() = %v, want terminated", src.State())
	}
}

func TestFileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	notWAV := filepath.Join(dir, "notes.wav")
	if err := os.WriteFile(notWAV, []byte("definitely not a RIFF header"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing file", filepath.Join(dir, "missing.wav"), ErrCaptureUnavailable},
		{"not a wav file", notWAV, ErrUnsupportedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewFileSource(tt.path, 512, false, NewQueue(), nil)
			err := src.Start()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
			}
			if src.State() != StateFailed {
				t.Errorf("State() = %v, want failed", src.State())
			}
			if err := src.Close(); err != nil {
				t.Errorf("Close() after failed Start error: %v", err)
			}
		})
	}
}
