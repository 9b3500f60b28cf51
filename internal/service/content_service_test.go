package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
	appErrors "github.com/noah-isme/deptshare-api/pkg/errors"
	"github.com/noah-isme/deptshare-api/pkg/storage"
)

type scopeStub map[string]*Scope

func (s scopeStub) ScopeFor(ctx context.Context, actor *models.Actor) (*Scope, error) {
	if actor.Authenticated() {
		if scope, ok := s[actor.UserID]; ok {
			return scope, nil
		}
	}
	return &Scope{SessionID: strPtr("s1")}, nil
}

type extensionRepoStub struct {
	names []string
	calls int
}

func (e *extensionRepoStub) List(ctx context.Context) ([]models.AllowedExtension, error) {
	e.calls++
	out := make([]models.AllowedExtension, 0, len(e.names))
	for _, n := range e.names {
		out = append(out, models.AllowedExtension{ID: n, Name: n})
	}
	return out, nil
}

func (e *extensionRepoStub) GetOrCreate(ctx context.Context, name string) (*models.AllowedExtension, bool, error) {
	for _, n := range e.names {
		if n == name {
			return &models.AllowedExtension{ID: n, Name: n}, false, nil
		}
	}
	e.names = append(e.names, name)
	return &models.AllowedExtension{ID: name, Name: name}, true, nil
}

func (e *extensionRepoStub) Delete(ctx context.Context, name string) (bool, error) {
	for i, n := range e.names {
		if n == name {
			e.names = append(e.names[:i], e.names[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type contentFixture struct {
	store   *memStore
	blobs   *storage.LocalStorage
	audit   *fileAuditStub
	svc     *ContentService
	vis     *VisibilityService
	recycle *RecycleService
	share   *ShareService
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()
	m := newMemStore()
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	sessions := sessionStub{
		"s1": {ID: "s1", Name: "Spring", Year: 2025, IsActive: true},
		"s0": {ID: "s0", Name: "Fall", Year: 2024},
	}
	departments := departmentStub{"d1": {ID: "d1", Name: "Computer Science", Code: "cse", IsActive: true}}
	scopes := scopeStub{
		"f": {Profile: &models.UserProfile{UserID: "f", DepartmentID: strPtr("d1"), IsFaculty: true}, SessionID: strPtr("s1")},
		"s": {Profile: &models.UserProfile{UserID: "s", DepartmentID: strPtr("d1")}, SessionID: strPtr("s1")},
	}
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	audit := &fileAuditStub{}
	recorder := NewFileAuditRecorder(audit, nil)
	extensions := NewExtensionService(&extensionRepoStub{names: []string{"md"}}, nil, nil, nil, 0, 0)

	return &contentFixture{
		store: m,
		blobs: blobs,
		audit: audit,
		svc: NewContentService(memFolders{m}, memFiles{m}, sessions, departments, scopes, extensions, blobs, signer, recorder,
			nil, nil, nil, nil, ContentOptions{MaxFileSize: 1024}),
		vis:     NewVisibilityService(memFolders{m}, memFiles{m}, nil, nil, nil),
		recycle: NewRecycleService(memFolders{m}, memFiles{m}, memLinks{m}, blobs, recorder, nil, nil, nil, nil),
		share: NewShareService(memLinks{m}, memFolders{m}, memFiles{m}, sessions, departments, blobs, signer, nil, recorder, nil, nil, nil,
			ShareOptions{BaseURL: "https://portal.example.edu"}),
	}
}

func (fx *contentFixture) folder(t *testing.T, actor *models.Actor, name string, parent *string, public bool) *models.Folder {
	t.Helper()
	folder, err := fx.svc.CreateFolder(context.Background(), actor, dto.CreateFolderRequest{Name: name, ParentID: parent, IsPublic: dto.FlexBool(public)})
	require.NoError(t, err)
	return folder
}

func (fx *contentFixture) upload(t *testing.T, actor *models.Actor, filename, body string, folder *string) *dto.FileView {
	t.Helper()
	view, err := fx.svc.Upload(context.Background(), actor, dto.UploadFileRequest{FolderID: folder},
		FileUpload{Filename: filename, Size: int64(len(body)), MimeType: "application/pdf", Content: strings.NewReader(body)}, models.RequestMeta{})
	require.NoError(t, err)
	return view
}

func TestUploadStoresBlobUnderScopedPath(t *testing.T) {
	fx := newContentFixture(t)
	notes := fx.folder(t, facultyActor, "NOTES", nil, false)
	unit1 := fx.folder(t, facultyActor, "UNIT1", &notes.ID, false)

	view := fx.upload(t, facultyActor, "syllabus.pdf", "hello", &unit1.ID)

	assert.Equal(t, "2025_Spring/CSE/NOTES/UNIT1/syllabus.pdf", view.BlobRef)
	assert.Equal(t, "NOTES/UNIT1", view.FolderPath)
	assert.Equal(t, int64(5), view.FileSize)
	assert.Equal(t, "PDF", view.FileExtension)
	assert.Equal(t, "syllabus.pdf", view.Name)
	assert.True(t, strings.HasPrefix(view.DownloadURL, "/api/v1/files/"+view.ID+"/download?token="))
	exists, err := fx.blobs.Exists(view.BlobRef)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, []models.FileAction{models.FileActionUpload}, fx.audit.actions())

	again := fx.upload(t, facultyActor, "syllabus.pdf", "hello again", &unit1.ID)
	assert.NotEqual(t, view.BlobRef, again.BlobRef)
	assert.True(t, strings.HasPrefix(again.BlobRef, "2025_Spring/CSE/NOTES/UNIT1/syllabus_"))
}

func TestUploadRejectsBadFiles(t *testing.T) {
	fx := newContentFixture(t)
	ctx := context.Background()
	upload := func(name string, declared int64, body string) error {
		_, err := fx.svc.Upload(ctx, facultyActor, dto.UploadFileRequest{}, FileUpload{Filename: name, Size: declared, Content: strings.NewReader(body)}, models.RequestMeta{})
		return err
	}

	assert.True(t, errors.Is(upload("run.exe", 3, "abc"), appErrors.ErrValidation))
	assert.True(t, errors.Is(upload("README", 3, "abc"), appErrors.ErrValidation))
	assert.True(t, errors.Is(upload("big.pdf", 2048, "abc"), appErrors.ErrValidation))
	assert.True(t, errors.Is(upload("sneaky.pdf", 0, strings.Repeat("x", 2000)), appErrors.ErrValidation))
	assert.Empty(t, fx.store.files)

	require.NoError(t, upload("notes.md", 3, "abc"))
	_, err := fx.svc.Upload(ctx, nil, dto.UploadFileRequest{}, FileUpload{Filename: "a.pdf", Content: strings.NewReader("a")}, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	var stored []string
	require.NoError(t, fx.blobs.Walk("", func(rel string, size int64) error {
		stored = append(stored, rel)
		return nil
	}))
	assert.Equal(t, []string{"2025_Spring/CSE/notes.md"}, stored)
}

func TestCreateFolderRules(t *testing.T) {
	fx := newContentFixture(t)
	ctx := context.Background()

	root := fx.folder(t, facultyActor, "NOTES", nil, true)
	assert.True(t, root.IsPublic)
	assert.Equal(t, "s1", root.SessionID)
	assert.Equal(t, "d1", root.DepartmentID)

	studentRoot := fx.folder(t, studentActor, "MINE", nil, true)
	assert.False(t, studentRoot.IsPublic)

	_, err := fx.svc.CreateFolder(ctx, facultyActor, dto.CreateFolderRequest{Name: "NOTES"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = fx.svc.CreateFolder(ctx, studentActor, dto.CreateFolderRequest{Name: "X", ParentID: &root.ID})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = fx.svc.CreateFolder(ctx, facultyActor, dto.CreateFolderRequest{Name: "OLD", SessionID: strPtr("s0")})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = fx.svc.CreateFolder(ctx, staffActor, dto.CreateFolderRequest{Name: "NO-DEPT"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	archived, err := fx.svc.CreateFolder(ctx, staffActor, dto.CreateFolderRequest{Name: "ARCHIVE", SessionID: strPtr("s0"), DepartmentID: strPtr("d1")})
	require.NoError(t, err)
	assert.Equal(t, "s0", archived.SessionID)

	_, err = fx.svc.CreateFolder(ctx, facultyActor, dto.CreateFolderRequest{Name: "a/b"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestListFoldersScopedToActiveSession(t *testing.T) {
	fx := newContentFixture(t)
	fx.folder(t, facultyActor, "CURRENT", nil, false)
	old := fx.store.addFolder("old", nil, "f", false)
	old.SessionID = "s0"
	manual := fx.store.addFolder("scanned", nil, "f", false)
	manual.IsManual = true
	fx.store.addFolder("theirs", nil, "s", false)

	folders, err := fx.svc.ListFolders(context.Background(), facultyActor, nil)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "CURRENT", folders[0].Name)

	all, err := fx.svc.ListFolders(context.Background(), staffActor, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestFolderContentsHidesOthersPrivateItems(t *testing.T) {
	fx := newContentFixture(t)
	notes := fx.folder(t, facultyActor, "NOTES", nil, true)
	fx.store.addFolder("private-child", &notes.ID, "f", false)
	fx.store.addFolder("public-child", &notes.ID, "f", true)
	gone := fx.store.addFolder("gone", &notes.ID, "f", true)
	gone.IsDeleted = true

	contents, err := fx.svc.FolderContents(context.Background(), studentActor, notes.ID)
	require.NoError(t, err)
	require.Len(t, contents.Children, 1)
	assert.Equal(t, "public-child", contents.Children[0].ID)

	contents, err = fx.svc.FolderContents(context.Background(), facultyActor, notes.ID)
	require.NoError(t, err)
	assert.Len(t, contents.Children, 2)

	_, err = fx.svc.FolderContents(context.Background(), studentActor, "private-child")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = fx.svc.FolderContents(context.Background(), staffActor, "gone")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestGetFileAndSignedDownload(t *testing.T) {
	fx := newContentFixture(t)
	view := fx.upload(t, facultyActor, "syllabus.pdf", "hello", nil)
	ctx := context.Background()

	_, err := fx.svc.GetFile(ctx, studentActor, view.ID, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	got, err := fx.svc.GetFile(ctx, facultyActor, view.ID, models.RequestMeta{IP: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, []models.FileAction{models.FileActionUpload, models.FileActionView}, fx.audit.actions())

	link, err := url.Parse(got.DownloadURL)
	require.NoError(t, err)
	token := link.Query().Get("token")

	dl, err := fx.svc.Download(ctx, facultyActor, view.ID, token, models.RequestMeta{})
	require.NoError(t, err)
	body, err := io.ReadAll(dl.File)
	require.NoError(t, dl.File.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, 1, fx.store.files[view.ID].DownloadCount)

	other := fx.upload(t, facultyActor, "other.pdf", "x", nil)
	_, err = fx.svc.Download(ctx, facultyActor, other.ID, token, models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = fx.svc.Download(ctx, facultyActor, view.ID, "garbage", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestSearchRespectsVisibility(t *testing.T) {
	fx := newContentFixture(t)
	fx.store.addFile("mine", nil, "s", false).Description = "lab report"
	fx.store.addFile("private", nil, "f", false).Description = "lab answers"
	fx.store.addFile("public", nil, "f", true).Description = "lab manual"

	res, err := fx.svc.Search(context.Background(), studentActor, "LAB", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	res, err = fx.svc.Search(context.Background(), staffActor, "lab", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)

	_, err = fx.svc.Search(context.Background(), studentActor, "  ", 0)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestScenarioOwnerPublishesUpload(t *testing.T) {
	fx := newContentFixture(t)
	view := fx.upload(t, facultyActor, "syllabus.pdf", "hello", nil)
	require.False(t, view.IsPublic)

	_, err := fx.vis.SetFileVisibility(context.Background(), facultyActor, view.ID, true)
	require.NoError(t, err)
	assert.True(t, fx.store.files[view.ID].IsPublic)
}

func TestScenarioStudentCannotPublishOthersFile(t *testing.T) {
	fx := newContentFixture(t)
	view := fx.upload(t, facultyActor, "syllabus.pdf", "hello", nil)

	_, err := fx.vis.SetFileVisibility(context.Background(), studentActor, view.ID, true)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.False(t, fx.store.files[view.ID].IsPublic)
}

func TestScenarioChildInheritsThenFollowsParent(t *testing.T) {
	fx := newContentFixture(t)
	notes := fx.folder(t, facultyActor, "NOTES", nil, false)
	unit1 := fx.folder(t, facultyActor, "UNIT1", &notes.ID, true)
	assert.False(t, unit1.IsPublic)

	_, err := fx.vis.SetFolderVisibility(context.Background(), facultyActor, notes.ID, true)
	require.NoError(t, err)
	assert.True(t, fx.store.folders[unit1.ID].IsPublic)
}

func TestScenarioSoftDeleteDisablesFolderLink(t *testing.T) {
	fx := newContentFixture(t)
	ctx := context.Background()
	notes := fx.folder(t, facultyActor, "NOTES", nil, false)
	unit1 := fx.folder(t, facultyActor, "UNIT1", &notes.ID, false)
	file := fx.upload(t, facultyActor, "file.pdf", "content", &unit1.ID)
	link, err := fx.share.CreateLink(ctx, facultyActor, dto.CreateShareRequest{FolderID: &notes.ID, ShareType: models.ShareTypePublic}, models.RequestMeta{})
	require.NoError(t, err)

	_, err = fx.recycle.DeleteFolder(ctx, facultyActor, notes.ID)
	require.NoError(t, err)

	assert.True(t, fx.store.folders[notes.ID].IsDeleted)
	assert.True(t, fx.store.folders[unit1.ID].IsDeleted)
	assert.True(t, fx.store.files[file.ID].IsDeleted)
	assert.False(t, fx.store.links[link.ID].IsActive)

	_, err = fx.share.ResolveLink(ctx, nil, link.Token, "", models.RequestMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrGone))
}
