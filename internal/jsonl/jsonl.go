// Package jsonl streams newline-delimited JSON records from a session
// file, resuming from a byte offset instead of re-reading bytes already
// consumed by an earlier call.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Record is one decoded line together with the bookkeeping the parser
// assigns it: its zero-based index among the records decoded so far.
// Blank and malformed lines are skipped and do not advance the index.
type Record struct {
	LineIndex int
	Raw       json.RawMessage
}

// Result is the outcome of a single Parse call: the records read and the
// offset the next call should resume from.
type Result struct {
	Records    []Record
	NextOffset int64
	// SkippedLines counts malformed JSON lines encountered; they are not
	// fatal and do not stop the scan.
	SkippedLines int
}

// Parse reads complete newline-terminated lines starting at offset,
// decoding each as a JSON object. A trailing line with no terminating
// newline is left unread — the offset returned always sits before any
// partial trailing line so the
// next call picks it up once it is complete.
//
// startLineIndex is the line index to assign to the first record read;
// callers resuming a scan pass the index one past the last record they
// already have.
func Parse(path string, offset int64, startLineIndex int) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsonl: open %s: %w", path, err)
	}
	defer f.Close()

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("jsonl: seek %s: %w", path, err)
		}
	}

	result := &Result{NextOffset: offset}
	lineIndex := startLineIndex
	reader := bufio.NewReaderSize(f, 64*1024)

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return result, fmt.Errorf("jsonl: read %s: %w", path, err)
		}

		if len(line) == 0 {
			break
		}

		if line[len(line)-1] != '\n' {
			// Incomplete trailing line: the writer hasn't finished it yet.
			// Leave it unread for the next call.
			break
		}

		lineData := line[:len(line)-1]
		result.NextOffset += int64(len(line))

		if len(trimSpace(lineData)) == 0 {
			// Blank lines are skipped without counting as malformed.
			continue
		}

		if !json.Valid(lineData) {
			result.SkippedLines++
			continue
		}

		result.Records = append(result.Records, Record{
			LineIndex: lineIndex,
			Raw:       append(json.RawMessage(nil), lineData...),
		})
		lineIndex++

		if err == io.EOF {
			break
		}
	}

	return result, nil
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
