package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/grade-explorer/internal/config"
)

const csvHeader = "Academic Year,Term,Subject,Course No.,Course Title,Instructor,GPA,A (%),A- (%),B+ (%),B (%),B- (%),C+ (%),C (%),C- (%),D+ (%),D (%),D- (%),F (%),Withdraws,Graded Enrollment,CRN,Credits\n"

var csvRows = []string{
	"2023-24,Fall,CS,2104,Problem Solving in CS,Smith,3.5,50,0,0,50,0,0,0,0,0,0,0,0,0,20,11111,3",
	"2023-24,Spring,CS,2104,Problem Solving in CS,Jones,2.4,20,0,0,0,0,0,80,0,0,0,0,0,1,10,22222,3",
	"2022-23,Fall,MATH,1225,Calculus,Adams,4.0,100,0,0,0,0,0,0,0,0,0,0,0,0,5,33333,4",
}

// Section ids of csvRows: term id * 100000 + CRN.
const (
	smithID int64 = 20230211111
	jonesID int64 = 20240122222
	adamsID int64 = 20220233333
)

// getBinaryPath returns the path to the grade_explorer binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "grade_explorer"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'go build -o bin/grade_explorer ./cmd/grade_explorer'", binaryPath)
	}

	return binaryPath
}

func writeCSV(t *testing.T, rows ...string) string {
	t.Helper()
	if len(rows) == 0 {
		rows = csvRows
	}
	path := filepath.Join(t.TempDir(), "grades.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader+strings.Join(rows, "\n")+"\n"), 0644))
	return path
}

func testConfig(csvPath string) config.Config {
	cfg := config.Config{CSVPath: csvPath, CurrentTerm: "Spring 2024"}
	return cfg.MergeWithDefaults(config.Config{})
}
