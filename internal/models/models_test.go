package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestShareLinkValidity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		name  string
		link  ShareLink
		state ShareState
	}{
		{"active without limits", ShareLink{IsActive: true}, ShareStateActive},
		{"deactivated", ShareLink{IsActive: false, ExpiresAt: &future}, ShareStateDeactivated},
		{"expired", ShareLink{IsActive: true, ExpiresAt: &past}, ShareStateExpired},
		{"expires exactly now", ShareLink{IsActive: true, ExpiresAt: &now}, ShareStateExpired},
		{"future expiry", ShareLink{IsActive: true, ExpiresAt: &future}, ShareStateActive},
		{"exhausted", ShareLink{IsActive: true, MaxDownloads: intPtr(1), DownloadCount: 1}, ShareStateExhausted},
		{"below ceiling", ShareLink{IsActive: true, MaxDownloads: intPtr(2), DownloadCount: 1}, ShareStateActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.state, tc.link.State(now))
			assert.Equal(t, tc.state == ShareStateActive, tc.link.IsValid(now))
		})
	}
}

func TestNewShareTarget(t *testing.T) {
	target, err := NewShareTarget(strPtr("f1"), nil)
	require.NoError(t, err)
	assert.True(t, target.IsFile())

	target, err = NewShareTarget(nil, strPtr("d1"))
	require.NoError(t, err)
	assert.True(t, target.IsFolder())

	_, err = NewShareTarget(strPtr("f1"), strPtr("d1"))
	assert.ErrorIs(t, err, ErrInvalidShareTarget)
	_, err = NewShareTarget(nil, strPtr(""))
	assert.ErrorIs(t, err, ErrInvalidShareTarget)
	assert.Error(t, ShareTarget{Kind: "blob", ID: "x"}.Validate())
}

func TestIsAllowed(t *testing.T) {
	dynamic := map[string]struct{}{"md": {}}
	assert.True(t, IsAllowed("PDF", nil))
	assert.True(t, IsAllowed(".docx", nil))
	assert.True(t, IsAllowed("md", dynamic))
	assert.False(t, IsAllowed("exe", dynamic))
	assert.False(t, IsAllowed("", dynamic))
	assert.Equal(t, "tar", NormalizeExtension("  .TAR "))
	assert.Equal(t, "pdf", ExtensionOf("notes.v2.PDF"))
}

func TestActorPermissions(t *testing.T) {
	staff := &Actor{UserID: "admin", IsStaff: true}
	faculty := &Actor{UserID: "f", IsFaculty: true}
	student := &Actor{UserID: "s"}
	var anonymous *Actor

	assert.True(t, staff.CanPublish("f"))
	assert.True(t, faculty.CanPublish("f"))
	assert.False(t, faculty.CanPublish("s"))
	assert.False(t, student.CanPublish("s"))
	assert.True(t, student.CanUnpublish("s"))
	assert.False(t, student.CanUnpublish("f"))
	assert.True(t, student.CanDelete("s"))
	assert.False(t, anonymous.CanDelete(""))
	assert.False(t, anonymous.Authenticated())
	assert.True(t, faculty.CanCreatePublicRoot())
	assert.False(t, student.CanCreatePublicRoot())
}

func TestActiveSessionResolution(t *testing.T) {
	global := strPtr("s-global")
	override := strPtr("s-override")
	dept := &Department{ID: "cse", ActiveSessionOverride: override}

	assert.Equal(t, override, dept.ActiveSessionID(global))
	assert.Equal(t, global, (&Department{ID: "ee"}).ActiveSessionID(global))
	assert.Nil(t, (&Department{ID: "ee"}).ActiveSessionID(nil))

	profile := &UserProfile{UserID: "u", DepartmentID: strPtr("cse")}
	assert.Equal(t, override, profile.ActiveSessionID(dept, global))
	assert.Equal(t, global, (&UserProfile{UserID: "u"}).ActiveSessionID(nil, global))
}

func TestFileHelpers(t *testing.T) {
	item := FileItem{OriginalFilename: "syllabus.pdf", FileSize: 2048}
	assert.Equal(t, "PDF", item.Extension())
	assert.Equal(t, "2 KB", item.SizeDisplay())
	assert.Equal(t, "512 B", SizeDisplay(512))
	assert.Equal(t, "3 MB", SizeDisplay(3*1024*1024+10))

	assert.Equal(t, "0 B", HumanizeBytes(0))
	assert.Equal(t, "1.5 KB", HumanizeBytes(1536))
	assert.Equal(t, "2.0 GB", HumanizeBytes(2*1024*1024*1024))

	session := &AcademicSession{Year: 2025, Name: "Spring"}
	dept := &Department{Code: "cse"}
	assert.Equal(t, "2025_Spring/CSE/NOTES/UNIT1/file.pdf", BlobPath(session, dept, []string{"NOTES", "UNIT1"}, "../file.pdf"))
	assert.Equal(t, "2025_Spring/CSE/file.pdf", BlobPath(session, dept, nil, "file.pdf"))
}

func TestChartSeries(t *testing.T) {
	series := NewChartSeries([]ChartPoint{{Label: "CSE", Value: 3}, {Label: "EE", Value: 1}})
	assert.Equal(t, []string{"CSE", "EE"}, series.Labels)
	assert.Equal(t, []int{3, 1}, series.Data)
	assert.Equal(t, "Download", FileActionDownload.Display())
}
