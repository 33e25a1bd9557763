package evidence

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkReport_StoreAndDiscard(t *testing.T) {
	r, dir := newRecorder(t, nil)
	content := []byte("%PDF-1.7 daily report")

	report := r.WorkReport("E1", &Document{File: bytes.NewReader(content), Filename: "Report.PDF"})
	ref, err := report.Store(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "attendance/E1/2025-03-03/WORK_REPORT-"), ref)
	assert.True(t, strings.HasSuffix(ref, ".pdf"), ref)

	stored, err := os.ReadFile(filepath.Join(dir, ref))
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	require.NoError(t, report.Discard(context.Background(), ref))
	_, err = os.Stat(filepath.Join(dir, ref))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkReport_Rejected(t *testing.T) {
	r, dir := newRecorder(t, nil)

	tests := []struct {
		name string
		doc  *Document
	}{
		{"executable", &Document{File: strings.NewReader("MZ"), Filename: "run.exe"}},
		{"no extension", &Document{File: strings.NewReader("notes"), Filename: "notes"}},
		{"empty", &Document{File: strings.NewReader(""), Filename: "notes.txt"}},
		{"too large", &Document{File: bytes.NewReader(make([]byte, maxReportBytes+1)), Filename: "dump.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.WorkReport("E1", tt.doc).Store(context.Background())
			assert.ErrorIs(t, err, ErrInvalidWorkReport)
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
