package video

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"shorts-pipeline/internal/media"
	"shorts-pipeline/internal/provider"
	"shorts-pipeline/internal/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	libraryTagsFile  = "tags.json"
	libraryUsageFile = "usage.json"
)

// Library picks a stock clip from a local folder. tags.json maps clip file
// names to tags; keys starting with "_" are ignored. usage.json counts how
// often each clip was used so repeats are spread out.
type Library struct {
	dir   string
	frame Frame
	enc   media.Encoder
	log   *logrus.Entry

	mu sync.Mutex
}

func NewLibrary(dir string, frame Frame, enc media.Encoder, log *logrus.Entry) *Library {
	return &Library{dir: dir, frame: frame, enc: enc, log: log}
}

func (l *Library) Name() string { return "library" }

type scoredClip struct {
	file  string
	score int
	uses  int
}

// Produce returns the clip whose tags best match the prompt. Among equal
// matches the least used clip wins, then the first by name.
func (l *Library) Produce(ctx context.Context, req Request) (types.VideoAsset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tags, err := loadTags(filepath.Join(l.dir, libraryTagsFile))
	if err != nil {
		return types.VideoAsset{}, err
	}
	usage := loadUsage(filepath.Join(l.dir, libraryUsageFile))
	words := keywords(req.Prompt)

	var candidates []scoredClip
	for file, clipTags := range tags {
		if fi, err := os.Stat(filepath.Join(l.dir, file)); err != nil || fi.Size() == 0 {
			continue
		}
		candidates = append(candidates, scoredClip{file: file, score: matchScore(words, clipTags), uses: usage[file]})
	}
	if len(candidates) == 0 {
		return types.VideoAsset{}, provider.Unavailable(l.Name(), "no clips in "+l.dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.uses != b.uses {
			return a.uses < b.uses
		}
		return a.file < b.file
	})
	pick := candidates[0]

	usage[pick.file]++
	if err := saveUsage(filepath.Join(l.dir, libraryUsageFile), usage); err != nil {
		l.log.WithError(err).Warn("Could not update clip usage")
	}

	path := filepath.Join(l.dir, pick.file)
	d, err := l.enc.Probe(ctx, path)
	if err != nil {
		d = req.Duration
	}
	l.log.WithFields(logrus.Fields{"clip": pick.file, "score": pick.score}).Info("Picked library clip")
	return types.VideoAsset{Path: path, Width: l.frame.Width, Height: l.frame.Height, Duration: d}, nil
}

func matchScore(words map[string]bool, clipTags []string) int {
	score := 0
	for _, t := range clipTags {
		if words[strings.ToLower(t)] {
			score += 10
		}
	}
	return score
}

func keywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) > 3 {
			out[w] = true
		}
	}
	return out
}

func loadTags(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, provider.Unavailable("library", path+" not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read clip tags")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse clip tags")
	}
	tags := make(map[string][]string, len(raw))
	for file, v := range raw {
		if strings.HasPrefix(file, "_") {
			continue
		}
		var t []string
		if err := json.Unmarshal(v, &t); err != nil {
			continue
		}
		tags[file] = t
	}
	return tags, nil
}

func loadUsage(path string) map[string]int {
	usage := make(map[string]int)
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &usage)
	}
	return usage
}

func saveUsage(path string, usage map[string]int) error {
	return provider.WriteAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(usage)
	})
}
