package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/grade-explorer/internal/ingestion"
)

// LoadStats counts the rows written by LoadDataset.
type LoadStats struct {
	Subjects    int `json:"subjects"`
	Terms       int `json:"terms"`
	Courses     int `json:"courses"`
	Instructors int `json:"instructors"`
	Sections    int `json:"sections"`
}

// LoadDataset replaces every stored row with ds in one transaction. Dataset
// ids are assigned per file, so the tables are truncated first.
func (db *DB) LoadDataset(ctx context.Context, ds *ingestion.Dataset) (*LoadStats, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE grade_distribution, section, course, instructor, term, subject`); err != nil {
		return nil, fmt.Errorf("failed to clear tables: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range ds.Subjects {
		batch.Queue(`INSERT INTO subject (subject_code, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			s.SubjectCode, s.Name)
	}
	for _, t := range ds.Terms {
		batch.Queue(`INSERT INTO term (term_id, label, academic_year) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			t.TermID, t.Label, t.AcademicYear)
	}
	for _, c := range ds.Courses {
		batch.Queue(`INSERT INTO course (course_id, subject_code, course_number, title, credits, level)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
			c.CourseID, c.SubjectCode, c.CourseNumber, c.Title, c.Credits, c.Level)
	}
	for _, i := range ds.Instructors {
		batch.Queue(`INSERT INTO instructor (instructor_id, name_display) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			i.InstructorID, i.NameDisplay)
	}
	for _, s := range ds.Sections {
		batch.Queue(`INSERT INTO section (section_id, course_id, term_id, instructor_id, credits, graded_enrollment)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`,
			s.SectionID, s.CourseID, s.TermID, s.InstructorID, s.Credits, s.GradedEnrollment)
		v := s.Grades.Breakdown
		batch.Queue(`INSERT INTO grade_distribution (section_id, gpa, a, a_minus, b_plus, b, b_minus, c_plus, c,
			 c_minus, d_plus, d, d_minus, f, withdraws, graded_enrollment)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) ON CONFLICT DO NOTHING`,
			s.SectionID, s.Grades.GPA, v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7], v[8], v[9], v[10], v[11],
			s.Grades.Withdraws, s.Grades.GradedEnrollment)
	}

	results := tx.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return nil, fmt.Errorf("failed to load dataset: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit dataset: %w", err)
	}
	db.cache.Flush()

	return &LoadStats{
		Subjects:    len(ds.Subjects),
		Terms:       len(ds.Terms),
		Courses:     len(ds.Courses),
		Instructors: len(ds.Instructors),
		Sections:    len(ds.Sections),
	}, nil
}
