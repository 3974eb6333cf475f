package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"extrinsicScope/internal/model"
)

// JsonlStorage writes block activity to one JSONL file and decode errors to
// a second one.
type JsonlStorage struct {
	path       string
	errorsPath string
	mu         sync.Mutex
}

func NewJsonlStorage(path, errorsPath string) *JsonlStorage {
	return &JsonlStorage{path: path, errorsPath: errorsPath}
}

// PutActivityBatch appends a batch of activity records as JSON lines.
func (s *JsonlStorage) PutActivityBatch(activity []model.BlockActivity) error {
	if len(activity) == 0 {
		return nil
	}
	records := make([]interface{}, len(activity))
	for i, record := range activity {
		records[i] = record
	}
	return s.appendRecords(s.path, records)
}

// PutDecodeErrors appends decode-error records as JSON lines.
func (s *JsonlStorage) PutDecodeErrors(errs []model.DecodeError) error {
	if len(errs) == 0 {
		return nil
	}
	records := make([]interface{}, len(errs))
	for i, record := range errs {
		records[i] = record
	}
	return s.appendRecords(s.errorsPath, records)
}

func (s *JsonlStorage) appendRecords(path string, records []interface{}) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
