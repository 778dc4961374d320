package capture

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
)

// WAVMimeType is the mime type of encoded voice clips.
const WAVMimeType = "audio/wav"

// MaxRecording bounds how much audio a Recorder keeps; later samples are dropped.
const MaxRecording = 5 * time.Minute

// Recorder accumulates the samples of a Record session and encodes them as a WAV clip.
type Recorder struct {
	rate       int
	maxSamples int

	mu       sync.Mutex
	samples  []float32
	dropped  int
	finished bool
}

// NewRecorder creates a recorder for mono audio at rate Hz.
func NewRecorder(rate int) *Recorder {
	return &Recorder{
		rate:       rate,
		maxSamples: int(MaxRecording.Seconds()) * rate,
	}
}

// Write appends samples. Writes after Finish or beyond MaxRecording are dropped.
func (r *Recorder) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return
	}
	room := r.maxSamples - len(r.samples)
	if len(samples) > room {
		r.dropped += len(samples) - max(room, 0)
		samples = samples[:max(room, 0)]
	}
	r.samples = append(r.samples, samples...)
}

// Len returns the number of recorded samples.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Duration returns the recorded length.
func (r *Recorder) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration()
}

func (r *Recorder) duration() time.Duration {
	if r.rate <= 0 {
		return 0
	}
	return time.Duration(len(r.samples)) * time.Second / time.Duration(r.rate)
}

// Finish stops recording and encodes the clip as 16-bit mono PCM WAV.
// It fails with domain.ErrEmptyClip when nothing was recorded.
func (r *Recorder) Finish() (domain.VoiceClip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = true
	if len(r.samples) == 0 {
		return domain.VoiceClip{}, domain.ErrEmptyClip
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  r.rate,
		},
		Data:           make([]int, len(r.samples)),
		SourceBitDepth: 16,
	}
	for i, s := range r.samples {
		buf.Data[i] = int(math.Round(float64(max(-1, min(1, s))) * math.MaxInt16))
	}

	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, r.rate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return domain.VoiceClip{}, fmt.Errorf("encode voice clip: %w", err)
	}
	if err := enc.Close(); err != nil {
		return domain.VoiceClip{}, fmt.Errorf("finalize voice clip: %w", err)
	}
	data, err := io.ReadAll(out.Reader())
	if err != nil {
		return domain.VoiceClip{}, fmt.Errorf("read voice clip: %w", err)
	}

	return domain.VoiceClip{
		Data:       data,
		MimeType:   WAVMimeType,
		Duration:   r.duration(),
		SampleRate: r.rate,
		Samples:    len(r.samples),
	}, nil
}
