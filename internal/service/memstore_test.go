package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/deptshare-api/internal/models"
)

// memStore is an in-memory content tree used by service tests. failOn makes the
// write for a given row id fail, which lets tests observe partial cascades.
type memStore struct {
	folders map[string]*models.Folder
	files   map[string]*models.FileItem
	links   map[string]*models.ShareLink
	failOn  map[string]error
	writes  []string
}

func newMemStore() *memStore {
	return &memStore{
		folders: map[string]*models.Folder{},
		files:   map[string]*models.FileItem{},
		links:   map[string]*models.ShareLink{},
		failOn:  map[string]error{},
	}
}

func (m *memStore) addFolder(id string, parent *string, owner string, public bool) *models.Folder {
	f := &models.Folder{ID: id, Name: strings.ToUpper(id), ParentID: parent, OwnerID: owner, IsPublic: public, SessionID: "s1", DepartmentID: "d1"}
	m.folders[id] = f
	return f
}

func (m *memStore) addFile(id string, folder *string, owner string, public bool) *models.FileItem {
	f := &models.FileItem{ID: id, Name: id, OriginalFilename: id + ".pdf", BlobRef: "2025_Spring/CSE/" + id + ".pdf", FolderID: folder, OwnerID: owner, IsPublic: public, SessionID: "s1", DepartmentID: "d1", FileSize: 2048}
	m.files[id] = f
	return f
}

func (m *memStore) write(id string) error {
	if err, ok := m.failOn[id]; ok {
		return err
	}
	m.writes = append(m.writes, id)
	return nil
}

func strPtr(v string) *string { return &v }

type memFolders struct{ *memStore }

func (m memFolders) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = fmt.Sprintf("folder-%d", len(m.folders)+1)
	}
	cp := *folder
	m.folders[folder.ID] = &cp
	return nil
}

func (m memFolders) FindByID(ctx context.Context, id string) (*models.Folder, error) {
	f, ok := m.folders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m memFolders) FindSibling(ctx context.Context, sessionID, departmentID string, parentID *string, name string) (*models.Folder, error) {
	for _, f := range m.folders {
		if f.SessionID == sessionID && f.DepartmentID == departmentID && f.Name == name && samePtr(f.ParentID, parentID) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memFolders) List(ctx context.Context, filter models.FolderFilter) ([]models.Folder, error) {
	out := []models.Folder{}
	for _, f := range m.sortedFolders() {
		if !filter.IncludeDeleted && f.IsDeleted {
			continue
		}
		if filter.OwnerID != "" && f.OwnerID != filter.OwnerID {
			continue
		}
		if filter.SessionID != "" && f.SessionID != filter.SessionID {
			continue
		}
		if filter.DepartmentID != "" && f.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.RootOnly && f.ParentID != nil {
			continue
		}
		if filter.ParentID != nil && !samePtr(f.ParentID, filter.ParentID) {
			continue
		}
		if filter.PublicOnly && !f.IsPublic {
			continue
		}
		if !filter.IncludeManual && f.IsManual {
			continue
		}
		if filter.VisibleTo != "" && !f.IsPublic && f.OwnerID != filter.VisibleTo {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m memFolders) ChildIDs(ctx context.Context, parentID string) ([]string, error) {
	if err, ok := m.failOn["children:"+parentID]; ok {
		return nil, err
	}
	ids := []string{}
	for _, f := range m.sortedFolders() {
		if f.ParentID != nil && *f.ParentID == parentID {
			ids = append(ids, f.ID)
		}
	}
	return ids, nil
}

func (m memFolders) Subtree(ctx context.Context, rootID string, includeDeleted bool) ([]models.Folder, error) {
	out := []models.Folder{}
	queue := []string{rootID}
	seen := map[string]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		f, ok := m.folders[id]
		if !ok || seen[id] || (!includeDeleted && f.IsDeleted) {
			continue
		}
		seen[id] = true
		out = append(out, *f)
		children, _ := m.ChildIDs(ctx, id)
		queue = append(queue, children...)
	}
	return out, nil
}

func (m memFolders) ListPublic(ctx context.Context, sessionIDs []string) ([]models.Folder, error) {
	out := []models.Folder{}
	for _, f := range m.sortedFolders() {
		if f.IsPublic && !f.IsDeleted && contains(sessionIDs, f.SessionID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m memFolders) ListDeleted(ctx context.Context) ([]models.Folder, error) {
	out := []models.Folder{}
	for _, f := range m.sortedFolders() {
		if f.IsDeleted {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m memFolders) Update(ctx context.Context, folder *models.Folder) error {
	if err := m.write(folder.ID); err != nil {
		return err
	}
	cp := *folder
	m.folders[folder.ID] = &cp
	return nil
}

func (m memFolders) SetPublic(ctx context.Context, id string, public bool) error {
	if err := m.write(id); err != nil {
		return err
	}
	m.folders[id].IsPublic = public
	return nil
}

func (m memFolders) MarkDeleted(ctx context.Context, id string, at time.Time, by string) error {
	if err := m.write(id); err != nil {
		return err
	}
	f := m.folders[id]
	f.IsDeleted, f.DeletedAt, f.DeletedBy = true, &at, &by
	return nil
}

func (m memFolders) ClearDeleted(ctx context.Context, id string) error {
	if err := m.write(id); err != nil {
		return err
	}
	f := m.folders[id]
	f.IsDeleted, f.DeletedAt, f.DeletedBy = false, nil, nil
	return nil
}

func (m memFolders) Delete(ctx context.Context, id string) error {
	if err := m.write("rm:" + id); err != nil {
		return err
	}
	delete(m.folders, id)
	return nil
}

func (m memFolders) sortedFolders() []models.Folder {
	out := make([]models.Folder, 0, len(m.folders))
	for _, f := range m.folders {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memFiles struct{ *memStore }

func (m memFiles) Create(ctx context.Context, item *models.FileItem) error {
	if item.ID == "" {
		item.ID = fmt.Sprintf("file-%d", len(m.files)+1)
	}
	cp := *item
	m.files[item.ID] = &cp
	return nil
}

func (m memFiles) FindByID(ctx context.Context, id string) (*models.FileItem, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m memFiles) ExistsByBlobRef(ctx context.Context, blobRef string) (bool, error) {
	for _, f := range m.files {
		if f.BlobRef == blobRef {
			return true, nil
		}
	}
	return false, nil
}

func (m memFiles) List(ctx context.Context, filter models.FolderFilter) ([]models.FileItem, error) {
	out := []models.FileItem{}
	for _, f := range m.sortedFiles() {
		if !filter.IncludeDeleted && f.IsDeleted {
			continue
		}
		if filter.OwnerID != "" && f.OwnerID != filter.OwnerID {
			continue
		}
		if filter.SessionID != "" && f.SessionID != filter.SessionID {
			continue
		}
		if filter.DepartmentID != "" && f.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.RootOnly && f.FolderID != nil {
			continue
		}
		if filter.ParentID != nil && !samePtr(f.FolderID, filter.ParentID) {
			continue
		}
		if filter.PublicOnly && !f.IsPublic {
			continue
		}
		if !filter.IncludeManual && f.IsManual {
			continue
		}
		if filter.VisibleTo != "" && !f.IsPublic && f.OwnerID != filter.VisibleTo {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m memFiles) ListByFolder(ctx context.Context, folderID string) ([]models.FileItem, error) {
	if err, ok := m.failOn["files:"+folderID]; ok {
		return nil, err
	}
	out := []models.FileItem{}
	for _, f := range m.sortedFiles() {
		if f.FolderID != nil && *f.FolderID == folderID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m memFiles) ListInFolders(ctx context.Context, folderIDs []string, includeDeleted bool) ([]models.FileItem, error) {
	out := []models.FileItem{}
	for _, f := range m.sortedFiles() {
		if f.FolderID != nil && contains(folderIDs, *f.FolderID) && (includeDeleted || !f.IsDeleted) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m memFiles) ListPublic(ctx context.Context, sessionIDs []string) ([]models.FileItem, error) {
	out := []models.FileItem{}
	for _, f := range m.sortedFiles() {
		if f.IsPublic && !f.IsDeleted && contains(sessionIDs, f.SessionID) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m memFiles) Search(ctx context.Context, filter models.SearchFilter) ([]models.FileItem, error) {
	out := []models.FileItem{}
	q := strings.ToLower(filter.Query)
	for _, f := range m.sortedFiles() {
		if f.IsDeleted {
			continue
		}
		if !strings.Contains(strings.ToLower(f.Name+" "+f.Description+" "+f.OriginalFilename), q) {
			continue
		}
		if filter.VisibleTo != "" && !f.IsPublic && f.OwnerID != filter.VisibleTo {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func (m memFiles) ListDeleted(ctx context.Context) ([]models.FileItem, error) {
	out := []models.FileItem{}
	for _, f := range m.sortedFiles() {
		if f.IsDeleted {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m memFiles) Update(ctx context.Context, item *models.FileItem) error {
	if err := m.write(item.ID); err != nil {
		return err
	}
	cp := *item
	m.files[item.ID] = &cp
	return nil
}

func (m memFiles) SetPublic(ctx context.Context, id string, public bool) error {
	if err := m.write(id); err != nil {
		return err
	}
	m.files[id].IsPublic = public
	return nil
}

func (m memFiles) MarkDeleted(ctx context.Context, id string, at time.Time, by string) error {
	if err := m.write(id); err != nil {
		return err
	}
	f := m.files[id]
	f.IsDeleted, f.DeletedAt, f.DeletedBy = true, &at, &by
	return nil
}

func (m memFiles) ClearDeleted(ctx context.Context, id string) error {
	if err := m.write(id); err != nil {
		return err
	}
	f := m.files[id]
	f.IsDeleted, f.DeletedAt, f.DeletedBy = false, nil, nil
	return nil
}

func (m memFiles) IncrementDownloads(ctx context.Context, id string) (int, error) {
	f, ok := m.files[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	f.DownloadCount++
	return f.DownloadCount, nil
}

func (m memFiles) Delete(ctx context.Context, id string) error {
	if err := m.write("rm:" + id); err != nil {
		return err
	}
	delete(m.files, id)
	return nil
}

func (m memFiles) sortedFiles() []models.FileItem {
	out := make([]models.FileItem, 0, len(m.files))
	for _, f := range m.files {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memLinks struct{ *memStore }

func (m memLinks) Create(ctx context.Context, link *models.ShareLink) error {
	if err := link.Target.Validate(); err != nil {
		return err
	}
	cp := *link
	m.links[link.ID] = &cp
	return nil
}

func (m memLinks) FindByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	for _, l := range m.links {
		if l.Token == token {
			cp := *l
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memLinks) FindByID(ctx context.Context, id string) (*models.ShareLink, error) {
	l, ok := m.links[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (m memLinks) ListByCreator(ctx context.Context, creatorID string) ([]models.ShareLink, error) {
	out := []models.ShareLink{}
	for _, l := range m.links {
		if creatorID == "" || l.CreatedBy == creatorID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memLinks) IncrementDownloads(ctx context.Context, id string) (int, error) {
	l, ok := m.links[id]
	if !ok || !l.IsActive || (l.MaxDownloads != nil && l.DownloadCount >= *l.MaxDownloads) {
		return 0, sql.ErrNoRows
	}
	l.DownloadCount++
	return l.DownloadCount, nil
}

func (m memLinks) Deactivate(ctx context.Context, id string) error {
	if l, ok := m.links[id]; ok {
		l.IsActive = false
	}
	return nil
}

func (m memLinks) DeactivateForTarget(ctx context.Context, target models.ShareTarget) (int64, error) {
	var n int64
	for _, l := range m.links {
		if l.Target == target && l.IsActive {
			l.IsActive = false
			n++
		}
	}
	return n, nil
}

type blobRecorder struct {
	deleted []string
	failOn  map[string]error
}

func (b *blobRecorder) Delete(relPath string) error {
	if err, ok := b.failOn[relPath]; ok {
		return err
	}
	b.deleted = append(b.deleted, relPath)
	return nil
}

type fileAuditStub struct {
	entries []*models.FileAuditLog
	err     error
}

func (f *fileAuditStub) Create(ctx context.Context, entry *models.FileAuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fileAuditStub) actions() []models.FileAction {
	out := make([]models.FileAction, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

var (
	staffActor   = &models.Actor{UserID: "staff", Email: "staff@example.edu", Username: "staff", IsStaff: true}
	facultyActor = &models.Actor{UserID: "f", Email: "f@example.edu", Username: "faculty", IsFaculty: true, DepartmentID: strPtr("d1")}
	studentActor = &models.Actor{UserID: "s", Email: "s@example.edu", Username: "student", DepartmentID: strPtr("d1")}
)

// notesTree builds NOTES (owned by f) > UNIT1 > file.pdf plus a root file in NOTES.
func notesTree(public bool) *memStore {
	m := newMemStore()
	m.addFolder("notes", nil, "f", public)
	m.addFolder("unit1", strPtr("notes"), "f", public)
	m.addFolder("unit2", strPtr("notes"), "f", public)
	m.addFolder("lab", strPtr("unit1"), "f", public)
	m.addFile("syllabus", strPtr("notes"), "f", public)
	m.addFile("file", strPtr("unit1"), "f", public)
	m.addFile("lab-sheet", strPtr("lab"), "f", public)
	return m
}
