package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// NetworkFile holds the professional-network records, one per candidate,
	// in candidate order.
	NetworkFile = "linkedin_profiles.json"

	interviewPattern = "interview_%d.txt"
)

var cvFileRe = regexp.MustCompile(`^cv_(\d+)\.txt$`)

// ErrNoSources is returned when a data directory holds no CV files.
var ErrNoSources = errors.New("no candidate CV files found")

// Source groups the raw inputs for a single candidate.
type Source struct {
	// ID is the candidate number taken from the CV file name.
	ID            string
	CVText        string
	InterviewText string
	Network       *NetworkRecord
}

// LoadSources reads candidate inputs from dir. Every cv_<n>.txt file is a
// candidate; interview_<n>.txt and the n-th entry of linkedin_profiles.json
// are attached when present.
func LoadSources(dir string) ([]*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	numbers := make([]int, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := cvFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}

	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSources, dir)
	}
	sort.Ints(numbers)

	records, err := loadNetworkRecords(filepath.Join(dir, NetworkFile))
	if err != nil {
		return nil, err
	}

	sources := make([]*Source, 0, len(numbers))
	for _, n := range numbers {
		cv, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("cv_%d.txt", n)))
		if err != nil {
			return nil, fmt.Errorf("read cv %d: %w", n, err)
		}

		interview, err := readOptional(filepath.Join(dir, fmt.Sprintf(interviewPattern, n)))
		if err != nil {
			return nil, fmt.Errorf("read interview %d: %w", n, err)
		}

		src := &Source{
			ID:            strconv.Itoa(n),
			CVText:        string(cv),
			InterviewText: interview,
		}
		if n >= 1 && n <= len(records) {
			src.Network = records[n-1]
		}

		sources = append(sources, src)
	}

	return sources, nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func loadNetworkRecords(path string) ([]*NetworkRecord, error) {
	data, err := readOptional(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", NetworkFile, err)
	}
	if strings.TrimSpace(data) == "" {
		return nil, nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", NetworkFile, err)
	}

	records := make([]*NetworkRecord, len(raw))
	for i, item := range raw {
		record := &NetworkRecord{}
		if err := decodeRecord(item, record); err != nil {
			return nil, fmt.Errorf("decode %s entry %d: %w", NetworkFile, i, err)
		}
		records[i] = record
	}

	return records, nil
}
