package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// table is a CSV file with a header row, addressed by column name.
type table struct {
	path    string
	columns map[string]int
	records [][]string
}

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrFileNotFound, path)
		}

		return nil, fmt.Errorf("open %q: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open %q as a CSV file: %w", apperrors.ErrBadFormat, path, err)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %q is empty", apperrors.ErrBadFormat, path)
	}

	t := &table{path: path, columns: make(map[string]int), records: all[1:]}

	for i, name := range all[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := t.columns[name]; !dup {
			t.columns[name] = i
		}
	}

	var missing []string

	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: CSV file %q is missing columns %q", apperrors.ErrMissingColumns, path, missing)
	}

	return t, nil
}

func (t *table) get(row int, column string) string {
	rec := t.records[row]

	i := t.columns[column]
	if i >= len(rec) {
		return ""
	}

	return rec[i]
}

func (t *table) intValue(row int, column string) (int, error) {
	raw := strings.TrimSpace(t.get(row, column))

	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}

	// pandas writes integer columns holding NaN as floats ("18.0").
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %q row %d: column %q value %q is not an integer", apperrors.ErrBadFormat, t.path, row, column, raw)
	}

	return int(f), nil
}

// ReadDescription parses a population description table. Annotation file paths are
// resolved against the directory of the description file. No consistency checks are
// performed; see Validate.
func ReadDescription(path string) (*domain.Description, error) {
	t, err := readTable(path, domain.DescriptionColumns)
	if err != nil {
		return nil, fmt.Errorf("bad description file format: %w", err)
	}

	desc := &domain.Description{Path: path, Rows: make([]domain.PopulationDescriptor, 0, len(t.records))}
	baseDir := filepath.Dir(path)

	for i := range t.records {
		row := domain.PopulationDescriptor{
			File:       strings.TrimSpace(t.get(i, domain.ColumnFile)),
			Population: t.get(i, domain.ColumnPopulation),
			Row:        i,
		}

		if row.Occurrences, err = t.intValue(i, domain.ColumnOccurrences); err != nil {
			return nil, err
		}

		if row.Labelled, err = t.intValue(i, domain.ColumnLabelled); err != nil {
			return nil, err
		}

		if row.Positive, err = t.intValue(i, domain.ColumnPositive); err != nil {
			return nil, err
		}

		row.Path = resolvePath(baseDir, row.File)
		desc.Rows = append(desc.Rows, row)
	}

	return desc, nil
}

func resolvePath(baseDir, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}

	return filepath.Join(baseDir, file)
}

// ReadAnnotations parses an annotation file into rows. Span literals are decoded but
// not checked against the text; see Validate.
func ReadAnnotations(path string) ([]domain.AnnotationRow, error) {
	t, err := readTable(path, domain.AnnotationColumns)
	if err != nil {
		return nil, fmt.Errorf("bad input file format: %w", err)
	}

	rows := make([]domain.AnnotationRow, 0, len(t.records))

	for i := range t.records {
		span, err := ParseSpan(t.get(i, domain.ColumnSpan))
		if err != nil {
			return nil, fmt.Errorf("%q:%d: %w", path, i, err)
		}

		rows = append(rows, domain.AnnotationRow{Text: t.get(i, domain.ColumnText), Span: span})
	}

	return rows, nil
}
