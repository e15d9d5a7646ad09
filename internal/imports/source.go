package imports

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// HeaderRowCount is the number of non-data rows at the top of a source file.
const HeaderRowCount = 1

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one data record addressed by header name. Line is the physical
// line the record starts on.
type Row struct {
	Line   int
	fields map[string]string
}

// Get returns the trimmed value of column, or "" when the column is absent.
func (r Row) Get(column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(r.fields[column])
}

// Source reads a comma delimited file with a single header row.
// Each invocation opens its own Source and closes it before returning.
type Source struct {
	file   *os.File
	reader *csv.Reader
	header []string
	read   int
}

// OpenSource opens path and consumes the header row.
func OpenSource(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import source: %w", err)
	}
	src, err := newSource(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	src.file = file
	return src, nil
}

func newSource(r io.Reader) (*Source, error) {
	buffered := bufio.NewReader(r)
	if prefix, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}
	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("import source is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read import header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &Source{reader: reader, header: header}, nil
}

// ReadHeader returns the header columns of the file at path.
func ReadHeader(path string) ([]string, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return src.Header(), nil
}

func (s *Source) Header() []string {
	return append([]string(nil), s.header...)
}

// Count consumes the remaining records and returns how many data rows they hold.
func (s *Source) Count() (int, error) {
	n := 0
	for {
		_, err := s.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

// Seek skips data rows until offset rows have been consumed.
func (s *Source) Seek(offset int) error {
	for s.read < offset {
		if _, err := s.reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("seek import source: %w", err)
		}
		s.read++
	}
	return nil
}

// Next returns the following data row, or io.EOF. Blank lines are skipped by the reader.
func (s *Source) Next() (Row, error) {
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("read import row: %w", err)
	}
	s.read++
	fields := make(map[string]string, len(s.header))
	for i, column := range s.header {
		if i < len(record) {
			fields[column] = record[i]
		}
	}
	line, _ := s.reader.FieldPos(0)
	return Row{Line: line, fields: fields}, nil
}

func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
