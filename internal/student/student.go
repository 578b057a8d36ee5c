package student

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Student is a submitter discovered from a `lastname-firstname-identifier`
// filename. Two records with the same ID are the same student.
type Student struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName renders "first last".
func (s Student) DisplayName() string {
	return s.FirstName + " " + s.LastName
}

// Suggestion renders the autocomplete line for s.
func (s Student) Suggestion() string {
	return fmt.Sprintf("%s - %s", s.ID, s.DisplayName())
}

// ParseStudentFile extracts a Student from the file stem of path. The stem must
// split on "-" into exactly three parts and the last part must be a valid
// identifier.
func ParseStudentFile(path string) (Student, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return Student{}, false
	}

	parts := strings.Split(stem, "-")
	if len(parts) != 3 {
		return Student{}, false
	}
	if !IsValidIdentifier(parts[2]) {
		return Student{}, false
	}

	return Student{
		ID:        parts[2],
		FirstName: parts[1],
		LastName:  parts[0],
	}, true
}

// KnownStudents walks submissionsRoot and collects every student whose name can
// be parsed from a file or directory name. Hidden entries are skipped along with
// their subtrees, unreadable entries are ignored, and the result is deduplicated
// by ID and sorted by ID.
func KnownStudents(submissionsRoot string) ([]Student, error) {
	byID := make(map[string]Student)

	err := filepath.WalkDir(submissionsRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == submissionsRoot {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != submissionsRoot && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if s, ok := ParseStudentFile(path); ok {
			if _, seen := byID[s.ID]; !seen {
				byID[s.ID] = s
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk submissions %q: %w", submissionsRoot, err)
	}

	students := make([]Student, 0, len(byID))
	for _, s := range byID {
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool {
		return students[i].ID < students[j].ID
	})
	return students, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
