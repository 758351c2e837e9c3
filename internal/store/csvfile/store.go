// Package csvfile persists calculation history as a CSV table, one row per
// calculation.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-chi-calculator/internal/history"
)

// Header is the first row of every history file.
var Header = []string{"operator", "operand_a", "operand_b", "result", "created_at"}

// Store implements history.Store on a single CSV file.
type Store struct {
	path string
}

var _ history.Store = (*Store)(nil)

// New returns a Store reading and writing the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the history file.
func (s *Store) Path() string {
	return s.path
}

// Save overwrites the file with entries. The write goes to a temporary file
// that is renamed into place so a failed save never truncates existing data.
func (s *Store) Save(ctx context.Context, entries []history.Calculation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range entries {
		if err := w.Write(encodeRow(c)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Load reads every row of the file. A missing or empty file is an empty
// history. Any malformed row fails the whole load with
// history.ErrCorruptHistory.
func (s *Store) Load(ctx context.Context) ([]history.Calculation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(Header)

	header, err := r.Read()
	if err != nil {
		return nil, corrupt(1, err)
	}
	if !slices.Equal(header, Header) {
		return nil, corrupt(1, fmt.Errorf("unexpected header %q", strings.Join(header, ",")))
	}

	var entries []history.Calculation
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, corrupt(line, err)
		}

		c, err := decodeRow(row)
		if err != nil {
			return nil, corrupt(line, err)
		}
		entries = append(entries, c)
	}
	return entries, nil
}

func corrupt(line int, err error) error {
	return fmt.Errorf("%w: line %d: %w", history.ErrCorruptHistory, line, err)
}

func encodeRow(c history.Calculation) []string {
	return []string{
		c.Operator,
		c.OperandA.String(),
		c.OperandB.String(),
		c.Result.String(),
		c.CreatedAt.Format(time.RFC3339Nano),
	}
}

func decodeRow(row []string) (history.Calculation, error) {
	operator := strings.TrimSpace(row[0])
	if operator == "" {
		return history.Calculation{}, fmt.Errorf("operator is empty")
	}

	var nums [3]decimal.Decimal
	for i, field := range []string{"operand_a", "operand_b", "result"} {
		d, err := decimal.NewFromString(row[i+1])
		if err != nil {
			return history.Calculation{}, fmt.Errorf("%s: %w", field, err)
		}
		nums[i] = d
	}

	createdAt, err := time.Parse(time.RFC3339Nano, row[4])
	if err != nil {
		return history.Calculation{}, fmt.Errorf("created_at: %w", err)
	}

	return history.NewCalculation(operator, nums[0], nums[1], nums[2], createdAt), nil
}
