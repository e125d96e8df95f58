package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"ledgerScope/internal/model"
)

// Stream is the set of events read for one entity type.
type Stream struct {
	Name        string
	Events      []model.Event
	Diagnostics []model.Diagnostic
}

// ReadDir reads every *.json file in dir, one event per file, in lexicographic filename order.
// A missing directory yields an empty stream and a diagnostic.
func ReadDir(name, dir string) (Stream, error) {
	stream := Stream{Name: name, Events: make([]model.Event, 0)}

	stat, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			stream.Diagnostics = append(stream.Diagnostics, model.Diagnostic{
				Kind:    model.DiagMissingDirectory,
				Entity:  name,
				Source:  dir,
				Message: fmt.Sprintf("directory not found: %s", dir),
			})
			return stream, nil
		}
		return stream, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !stat.IsDir() {
		return stream, fmt.Errorf("%s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return stream, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)

	for _, path := range files {
		ev, err := readFile(path)
		if err != nil {
			return stream, err
		}
		ev.Seq = len(stream.Events)
		stream.Events = append(stream.Events, ev)
	}

	return stream, nil
}

// ReadJSONL reads one event per line from path. Blank lines are skipped.
func ReadJSONL(name, path string) (Stream, error) {
	stream := Stream{Name: name, Events: make([]model.Event, 0)}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			stream.Diagnostics = append(stream.Diagnostics, model.Diagnostic{
				Kind:    model.DiagMissingDirectory,
				Entity:  name,
				Source:  path,
				Message: fmt.Sprintf("log file not found: %s", path),
			})
			return stream, nil
		}
		return stream, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		source := fmt.Sprintf("%s:%d", path, lineNo)
		ev, err := decodeEvent(bytes.NewReader(line), source)
		if err != nil {
			return stream, err
		}
		ev.Seq = len(stream.Events)
		stream.Events = append(stream.Events, ev)
	}
	if err := scanner.Err(); err != nil {
		return stream, fmt.Errorf("scan input: %w", err)
	}

	return stream, nil
}

// LoadStreams reads root/<name> for every stream name. A root/<name>.jsonl file is used
// when the directory does not exist.
func LoadStreams(root string, names []string) ([]Stream, error) {
	streams := make([]Stream, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		jsonl := dir + ".jsonl"

		var (
			stream Stream
			err    error
		)
		if _, statErr := os.Stat(dir); errors.Is(statErr, os.ErrNotExist) && fileExists(jsonl) {
			stream, err = ReadJSONL(name, jsonl)
		} else {
			stream, err = ReadDir(name, dir)
		}
		if err != nil {
			return nil, fmt.Errorf("read stream %s: %w", name, err)
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

func readFile(path string) (model.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.Event{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return decodeEvent(file, path)
}

func decodeEvent(r io.Reader, source string) (model.Event, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var ev model.Event
	if err := dec.Decode(&ev); err != nil {
		return model.Event{}, fmt.Errorf("decode %s: %w", source, err)
	}
	ev.Source = source
	return ev, nil
}

func fileExists(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && !stat.IsDir()
}
