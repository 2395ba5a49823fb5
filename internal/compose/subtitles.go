package compose

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"shorts-pipeline/internal/provider"

	"github.com/pkg/errors"
)

const (
	wordsPerCue   = 10
	cueDuration   = 3 * time.Second
	minSRTLines   = 4
	srtTimeLayout = "%02d:%02d:%02d,000"
)

// WriteSRT splits text into fixed-length cues and writes them as SubRip
func WriteSRT(path, text string) error {
	words := strings.Fields(text)
	if len(words) == 0 {
		return errors.New("no words to subtitle")
	}
	return provider.WriteAtomic(path, func(f *os.File) error {
		return writeCues(f, words)
	})
}

func writeCues(w io.Writer, words []string) error {
	bw := bufio.NewWriter(w)
	for i, start := 0, 0; start < len(words); i, start = i+1, start+wordsPerCue {
		end := start + wordsPerCue
		if end > len(words) {
			end = len(words)
		}
		from := time.Duration(i) * cueDuration
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1, formatTime(from), formatTime(from+cueDuration), strings.Join(words[start:end], " "))
	}
	return bw.Flush()
}

func formatTime(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf(srtTimeLayout, secs/3600, (secs%3600)/60, secs%60)
}

// ValidateSRT checks that the file holds at least one complete cue
func ValidateSRT(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if lines < minSRTLines {
		return errors.Errorf("SRT file appears empty or malformed (%d lines)", lines)
	}
	return nil
}
