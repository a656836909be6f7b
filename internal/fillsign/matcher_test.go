package fillsign

import (
	"context"
	"testing"

	"github.com/docspace-portals/backend/internal/models"
	"github.com/docspace-portals/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMatchesInstanceTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		patient  string
		template string
		want     bool
	}{
		{"plain", "John Smith - Consent Form", "John Smith", "Consent Form", true},
		{"numbered", "3 - John Smith - Consent Form", "John Smith", "Consent Form", true},
		{"numbered without spaces", "12-John Smith-Consent Form", "John Smith", "Consent Form", true},
		{"other patient", "Jane Doe - Consent Form", "John Smith", "Consent Form", false},
		{"other template", "John Smith - Intake Form", "John Smith", "Consent Form", false},
		{"case and spacing", "  JOHN   smith - consent FORM.pdf", "John Smith", "Consent Form", true},
		{"en dash", "John Smith – Consent Form", "John Smith", "Consent Form", true},
		{"em dash numbered", "2 — John Smith — Consent Form", "John Smith", "Consent Form", true},
		{"patient not at start", "Copy of John Smith - Consent Form", "John Smith", "Consent Form", false},
		{"template before patient", "Consent Form - John Smith", "John Smith", "Consent Form", false},
		{"numbered other patient", "3 - Jane Doe - Consent Form", "John Smith", "Consent Form", false},
		{"patient prefix of longer name", "John Smithson - Consent Form", "John Smith", "Consent Form", false},
		{"empty title", "", "John Smith", "Consent Form", false},
		{"blank patient", "John Smith - Consent Form", "  ", "Consent Form", false},
		{"empty template", "John Smith - Consent Form", "John Smith", "", false},
		{"regex characters in name", "1 - J. (Jr) Smith - Consent Form", "J. (Jr) Smith", "Consent Form", true},
		{"non-breaking space in title", "John\u00a0Smith - Consent Form", "John Smith", "Consent Form", true},
		{"thin space in patient", "4 - John Smith - Consent Form", "John\u2009Smith", "Consent Form", true},
		{"number without separator", "3 John Smith - Consent Form", "John Smith", "Consent Form", false},
		{"numbered missing second separator", "3 - John Smith Consent Form", "John Smith", "Consent Form", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesInstanceTitle(tt.title, tt.patient, tt.template))
		})
	}
}

func TestPass_ResolveFormFolderIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("matches titles with and without extension", func(t *testing.T) {
		fp := testutil.NewFakePlatform()
		fp.AddFormFolder("in-process", "f1", "Consent Form.pdf")
		fp.AddFormFolder("in-process", "f2", "consent form")
		fp.AddFormFolder("in-process", "f3", "Intake Form")
		fp.AddInstance("in-process", models.FileInfo{ID: "x", Title: "Consent Form.pdf"})

		p := newPass(fp, zap.NewNop())
		ids := p.resolveFormFolderIDs(ctx, "in-process", "Consent Form.pdf")
		assert.Equal(t, []string{"f1", "f2"}, ids)

		// cached for the rest of the pass
		again := p.resolveFormFolderIDs(ctx, "in-process", "Consent Form.pdf")
		assert.Equal(t, ids, again)
		assert.Equal(t, 1, fp.Calls("GetFolderContents"))

		// the extensionless title finds the same folders
		assert.Equal(t, ids, newPass(fp, zap.NewNop()).resolveFormFolderIDs(ctx, "in-process", "consent form"))
	})

	t.Run("listing failure is empty", func(t *testing.T) {
		fp := testutil.NewFakePlatform()
		p := newPass(fp, zap.NewNop())
		assert.Empty(t, p.resolveFormFolderIDs(ctx, "missing", "Consent Form"))
		assert.Empty(t, p.resolveFormFolderIDs(ctx, "missing", "Consent Form"))
		assert.Equal(t, 1, fp.Calls("GetFolderContents"))
	})

	t.Run("empty parent skips lookup", func(t *testing.T) {
		fp := testutil.NewFakePlatform()
		p := newPass(fp, zap.NewNop())
		assert.Nil(t, p.resolveFormFolderIDs(ctx, "", "Consent Form"))
		assert.Zero(t, fp.TotalCalls())
	})
}

func TestPass_ListInstances(t *testing.T) {
	ctx := context.Background()
	fp := testutil.NewFakePlatform()
	fp.AddInstance("f1", models.FileInfo{ID: "late", Title: "John Smith - Consent Form.pdf", Created: "2025-03-02T09:00:00.0000000Z"})
	fp.AddInstance("f1", models.FileInfo{ID: "other", Title: "Jane Doe - Consent Form.pdf", Created: "2025-03-01T09:00:00.0000000Z"})
	fp.AddInstance("f2", models.FileInfo{ID: "early", Title: "2 - John Smith - Consent Form.pdf", Created: "2025-03-01T08:00:00.0000000Z"})
	fp.AddInstance("f2", models.FileInfo{ID: "late", Title: "John Smith - Consent Form.pdf", Created: "2025-03-02T09:00:00.0000000Z"})
	fp.AddFormFolder("f2", "nested", "John Smith - Consent Form")
	fp.AddInstance("f2", models.FileInfo{ID: "broken", Title: "John Smith - Consent Form (1).pdf"})
	fp.FileErrs["broken"] = assert.AnError

	p := newPass(fp, zap.NewNop())
	got := p.listInstances(ctx, []string{"f1", "f2", "gone"}, "John Smith", "Consent Form.pdf")

	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
	assert.Equal(t, 3, fp.Calls("GetFileInfo"), "each matching file is fetched once")
}
