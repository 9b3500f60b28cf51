package service

import (
	"sort"

	"github.com/noah-isme/deptshare-api/internal/dto"
	"github.com/noah-isme/deptshare-api/internal/models"
)

// folderTree indexes a loaded set of folders and files by parent for nesting.
type folderTree struct {
	children map[string][]models.Folder
	files    map[string][]models.FileItem
	fileURL  func(models.FileItem) string
}

func newFolderTree(folders []models.Folder, files []models.FileItem, fileURL func(models.FileItem) string) *folderTree {
	t := &folderTree{
		children: make(map[string][]models.Folder),
		files:    make(map[string][]models.FileItem),
		fileURL:  fileURL,
	}
	for _, f := range folders {
		if f.ParentID != nil {
			t.children[*f.ParentID] = append(t.children[*f.ParentID], f)
		}
	}
	for _, f := range files {
		if f.FolderID != nil {
			t.files[*f.FolderID] = append(t.files[*f.FolderID], f)
		}
	}
	for key := range t.children {
		list := t.children[key]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return t
}

// node serializes root with everything indexed beneath it. Folders seen twice are cut off.
func (t *folderTree) node(root models.Folder) dto.FolderNode {
	return t.build(root, make(map[string]struct{}))
}

func (t *folderTree) build(folder models.Folder, seen map[string]struct{}) dto.FolderNode {
	seen[folder.ID] = struct{}{}
	n := dto.FolderNode{
		ID:       folder.ID,
		Name:     folder.Name,
		IsPublic: folder.IsPublic,
		Children: []dto.FolderNode{},
		Files:    t.fileNodes(t.files[folder.ID]),
	}
	for _, child := range t.children[folder.ID] {
		if _, dup := seen[child.ID]; dup {
			continue
		}
		n.Children = append(n.Children, t.build(child, seen))
	}
	return n
}

func (t *folderTree) fileNodes(files []models.FileItem) []dto.FileNode {
	nodes := make([]dto.FileNode, 0, len(files))
	for _, f := range files {
		node := dto.FileNode{ID: f.ID, Name: f.Name, FileSize: f.FileSize, IsPublic: f.IsPublic}
		if t.fileURL != nil {
			node.URL = t.fileURL(f)
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func folderIDs(folders []models.Folder) []string {
	ids := make([]string, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	return ids
}
