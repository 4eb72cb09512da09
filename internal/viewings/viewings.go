// Package viewings reads and writes the personal viewing records, one YAML
// file per viewing. The viewings table is rebuilt from these files.
package viewings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"moviedb/internal/models"
	"moviedb/internal/storage"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
)

// Extension of viewing record files.
const Extension = ".yml"

// Date is a calendar date written as a plain YAML date (2006-01-02).
type Date struct {
	time.Time
}

func (d Date) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: d.Format(models.DateLayout)}, nil
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	for _, layout := range []string{models.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, value.Value); err == nil {
			d.Time = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", value.Value)
}

// record is the on-disk layout of a viewing file.
type record struct {
	Sequence int64  `yaml:"sequence"`
	Date     Date   `yaml:"date"`
	IMDbID   string `yaml:"imdb_id"`
	Title    string `yaml:"title"` // "Title (Year)"
	Year     int64  `yaml:"year,omitempty"`
	Venue    string `yaml:"venue"`
}

var titleWithYear = regexp.MustCompile(`^(.+) \((\d{4})\)$`)

// ParseTitleWithYear splits "Title (Year)".
func ParseTitleWithYear(s string) (string, int64, error) {
	m := titleWithYear.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", 0, fmt.Errorf("title %q does not end with a (year)", s)
	}
	year, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, err
	}
	return m[1], year, nil
}

// Load reads one viewing file.
func Load(path string) (models.Viewing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Viewing{}, err
	}

	var r record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return models.Viewing{}, fmt.Errorf("%s: %w", path, err)
	}

	title, year := r.Title, r.Year
	if parsed, parsedYear, err := ParseTitleWithYear(r.Title); err == nil {
		title = parsed
		if year == 0 {
			year = parsedYear
		}
	}

	v := models.Viewing{
		IMDbID:   r.IMDbID,
		Title:    title,
		Year:     year,
		Venue:    r.Venue,
		Sequence: r.Sequence,
		Date:     r.Date.Time,
		FilePath: path,
	}
	if err := validate(v); err != nil {
		return models.Viewing{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func validate(v models.Viewing) error {
	switch {
	case v.IMDbID == "":
		return fmt.Errorf("missing imdb_id")
	case v.Title == "":
		return fmt.Errorf("missing title")
	case v.Year == 0:
		return fmt.Errorf("missing year")
	case v.Venue == "":
		return fmt.Errorf("missing venue")
	case v.Sequence <= 0:
		return fmt.Errorf("sequence must be positive, got %d", v.Sequence)
	case v.Date.IsZero():
		return fmt.Errorf("missing date")
	}
	return nil
}

// LoadAll reads every viewing file in dir, ordered by sequence. A missing
// directory holds no viewings. Two files with the same sequence are an error.
func LoadAll(dir string) ([]models.Viewing, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+Extension))
	if err != nil {
		return nil, err
	}

	viewings := make([]models.Viewing, 0, len(paths))
	for _, path := range paths {
		v, err := Load(path)
		if err != nil {
			return nil, err
		}
		viewings = append(viewings, v)
	}

	sort.Slice(viewings, func(i, j int) bool { return viewings[i].Sequence < viewings[j].Sequence })
	for i := 1; i < len(viewings); i++ {
		if viewings[i].Sequence == viewings[i-1].Sequence {
			return nil, fmt.Errorf("duplicate sequence %d in %s and %s",
				viewings[i].Sequence, viewings[i-1].FilePath, viewings[i].FilePath)
		}
	}
	return viewings, nil
}

// FileName derives the file name of a viewing from its sequence and title.
func FileName(v models.Viewing) string {
	return slug.Make(fmt.Sprintf("%04d %s", v.Sequence, v.TitleWithYear())) + Extension
}

// Save writes v into dir, or over v.FilePath when it is already set, and
// records the path on v.
func Save(dir string, v *models.Viewing) (string, error) {
	if err := validate(*v); err != nil {
		return "", err
	}

	path := v.FilePath
	if path == "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("could not create viewings directory: %w", err)
		}
		path = filepath.Join(dir, FileName(*v))
	}

	data, err := Marshal(*v)
	if err != nil {
		return "", err
	}
	if _, err := storage.SaveFile(bytes.NewReader(data), path, 0); err != nil {
		return "", err
	}

	v.FilePath = path
	return path, nil
}

// Marshal renders v in the viewing file layout.
func Marshal(v models.Viewing) ([]byte, error) {
	return yaml.Marshal(record{
		Sequence: v.Sequence,
		Date:     Date{v.Date},
		IMDbID:   v.IMDbID,
		Title:    v.TitleWithYear(),
		Venue:    v.Venue,
	})
}

// NextSequence returns the sequence number following the highest in use.
func NextSequence(viewings []models.Viewing) int64 {
	var highest int64
	for _, v := range viewings {
		if v.Sequence > highest {
			highest = v.Sequence
		}
	}
	return highest + 1
}
