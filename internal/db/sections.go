package db

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/grade-explorer/internal/types"
)

const subjectsCacheKey = "subjects"

// lookup is an existence check for one filter field.
type lookup struct {
	field   string
	query   string
	pattern func(string) string
}

var (
	subjectLookup = lookup{
		field:   "subjects",
		query:   `SELECT EXISTS (SELECT 1 FROM subject WHERE UPPER(subject_code) = UPPER($1))`,
		pattern: func(v string) string { return v },
	}
	instructorLookup = lookup{
		field:   "instructors",
		query:   `SELECT EXISTS (SELECT 1 FROM instructor WHERE name_display ILIKE $1)`,
		pattern: func(v string) string { return "%" + escapeLike(v) + "%" },
	}
	titleLookup = lookup{
		field:   "course_title_contains",
		query:   `SELECT EXISTS (SELECT 1 FROM course WHERE title ILIKE $1)`,
		pattern: func(v string) string { return "%" + escapeLike(v) + "%" },
	}
)

// FetchSections implements pipeline.Source. Filter values that match nothing
// stored are dropped and reported, an unresolved relative term resolves to
// the latest stored term of its season, and terms that are also excluded
// are removed.
func (db *DB) FetchSections(ctx context.Context, interp *types.Interpretation, opts types.FetchOptions) (*types.FetchResult, error) {
	result := &types.FetchResult{Filters: interp.Filters.Clone()}
	f := &result.Filters

	if err := db.dropUnknown(ctx, result); err != nil {
		return nil, err
	}
	if err := db.resolveRelativeTerm(ctx, result); err != nil {
		return nil, err
	}
	result.PruneExcludedTerms()
	if len(f.Subjects) == 0 && len(f.CourseNumbers) > 0 {
		result.Drop("course_numbers", f.CourseNumbers...)
		f.CourseNumbers = nil
	}

	q := BuildSectionQuery(f, opts.RowCap())
	rows, err := db.pool.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	sections := []types.Section{}
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sections: %w", err)
	}
	result.Sections = sections
	return result, nil
}

// dropUnknown runs the existence lookups concurrently and removes the
// values that match nothing.
func (db *DB) dropUnknown(ctx context.Context, result *types.FetchResult) error {
	f := &result.Filters
	targets := []struct {
		lookup lookup
		field  string
		values *[]string
	}{
		{subjectLookup, "subjects", &f.Subjects},
		{instructorLookup, "instructors", &f.Instructors},
		{instructorLookup, "exclude_instructors", &f.ExcludeInstructors},
		{titleLookup, "course_title_contains", &f.CourseTitleContains},
	}

	kept := make([][]string, len(targets))
	dropped := make([][]string, len(targets))
	g, gCtx := errgroup.WithContext(ctx)
	for i, t := range targets {
		if len(*t.values) == 0 {
			continue
		}
		values := *t.values
		g.Go(func() error {
			for _, v := range values {
				ok, err := db.exists(gCtx, t.lookup, v)
				if err != nil {
					return err
				}
				if ok {
					kept[i] = append(kept[i], v)
				} else {
					dropped[i] = append(dropped[i], v)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, t := range targets {
		if len(*t.values) == 0 {
			continue
		}
		*t.values = kept[i]
		result.Drop(t.field, dropped[i]...)
	}
	return nil
}

// exists answers one lookup, consulting the cache first.
func (db *DB) exists(ctx context.Context, l lookup, value string) (bool, error) {
	key := l.field + ":" + strings.ToLower(value)
	if hit, found := db.cache.Get(key); found {
		return hit.(bool), nil
	}
	var ok bool
	if err := db.pool.QueryRow(ctx, l.query, l.pattern(value)).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to look up %s %q: %w", l.field, value, err)
	}
	db.cache.Set(key, ok, cache.DefaultExpiration)
	return ok, nil
}

// resolveRelativeTerm pins an unresolved relative term to the most recent
// stored term of its season.
func (db *DB) resolveRelativeTerm(ctx context.Context, result *types.FetchResult) error {
	f := &result.Filters
	rt := f.RelativeTerm
	if rt == nil || rt.Resolved != "" || rt.Season == "" || len(f.Terms) > 0 {
		return nil
	}
	var label string
	err := db.pool.QueryRow(ctx,
		`SELECT label FROM term WHERE label ILIKE $1 ORDER BY term_id DESC LIMIT 1`,
		escapeLike(rt.Season)+" %",
	).Scan(&label)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve relative term: %w", err)
	}
	resolved := *rt
	resolved.Resolved = label
	f.RelativeTerm = &resolved
	f.Terms = []string{label}
	result.RelativeTerm = &resolved
	return nil
}

// ListSubjects implements pipeline.Source.
func (db *DB) ListSubjects(ctx context.Context) ([]types.Subject, error) {
	if hit, found := db.cache.Get(subjectsCacheKey); found {
		return slices.Clone(hit.([]types.Subject)), nil
	}
	rows, err := db.pool.Query(ctx, `SELECT subject_code, name FROM subject ORDER BY subject_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	subjects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Subject, error) {
		var s types.Subject
		err := row.Scan(&s.SubjectCode, &s.Name)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan subjects: %w", err)
	}
	db.cache.Set(subjectsCacheKey, subjects, cache.DefaultExpiration)
	return slices.Clone(subjects), nil
}

// scanSection reads one row laid out as selectColumns.
func scanSection(row pgx.Row) (types.Section, error) {
	var s types.Section
	b := &s.Grades.Breakdown
	err := row.Scan(
		&s.SectionID, &s.CourseID, &s.TermID, &s.InstructorID, &s.Credits, &s.GradedEnrollment,
		&s.Course.SubjectCode, &s.Course.SubjectName, &s.Course.CourseNumber, &s.Course.Title, &s.Course.Credits, &s.Course.Level,
		&s.Term.Label, &s.Term.AcademicYear, &s.Instructor.NameDisplay, &s.Grades.GPA,
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5], &b[6], &b[7], &b[8], &b[9], &b[10], &b[11],
		&s.Grades.Withdraws, &s.Grades.GradedEnrollment,
	)
	if err != nil {
		return types.Section{}, fmt.Errorf("failed to scan section: %w", err)
	}
	s.Course.CourseID = s.CourseID
	s.Term.TermID = s.TermID
	s.Instructor.InstructorID = s.InstructorID
	return s, nil
}
