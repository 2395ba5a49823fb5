package voice

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tcolgate/mp3"
)

// wavHeaderSize is the canonical 44-byte RIFF/WAVE header with one fmt and one data chunk
const wavHeaderSize = 44

// Duration measures an audio file by its extension; other containers report 0
func Duration(path string) (time.Duration, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wavDuration(f)
	case ".mp3":
		d, err := mp3Duration(f)
		return d, 0, err
	}
	return 0, 0, nil
}

type wavHeader struct {
	RiffID        [4]byte
	FileSize      uint32
	WaveID        [4]byte
	FmtID         [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataID        [4]byte
	DataSize      uint32
}

func wavDuration(r io.Reader) (time.Duration, int, error) {
	var h wavHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return 0, 0, errors.Wrap(err, "read wav header")
	}
	if string(h.RiffID[:]) != "RIFF" || string(h.WaveID[:]) != "WAVE" {
		return 0, 0, errors.New("not a wav file")
	}
	if h.ByteRate == 0 {
		return 0, 0, errors.New("wav header has zero byte rate")
	}
	d := time.Duration(float64(h.DataSize) / float64(h.ByteRate) * float64(time.Second))
	return d, int(h.SampleRate), nil
}

func mp3Duration(r io.Reader) (time.Duration, error) {
	d := mp3.NewDecoder(r)

	var duration time.Duration
	skipped := 0
	frames := 0
	for {
		frame := mp3.Frame{}
		if err := d.Decode(&frame, &skipped); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return 0, errors.Wrap(err, "decode mp3")
		}
		duration += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("no mp3 frames")
	}
	return duration, nil
}

// writeSilence writes a 16-bit mono PCM WAV of silence lasting d
func writeSilence(w io.Writer, sampleRate int, d time.Duration) error {
	samples := uint32(float64(sampleRate) * d.Seconds())
	dataSize := samples * 2

	h := wavHeader{
		FileSize:      wavHeaderSize - 8 + dataSize,
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		DataSize:      dataSize,
	}
	copy(h.RiffID[:], "RIFF")
	copy(h.WaveID[:], "WAVE")
	copy(h.FmtID[:], "fmt ")
	copy(h.DataID[:], "data")

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}

	zeros := make([]byte, 32*1024)
	for remaining := int64(dataSize); remaining > 0; {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := w.Write(zeros[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
