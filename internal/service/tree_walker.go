package service

import (
	"context"
	"fmt"
)

type folderChildLister interface {
	ChildIDs(ctx context.Context, parentID string) ([]string, error)
}

// walkFolders visits rootID and every descendant folder exactly once, depth first,
// using an explicit stack and a visited set. It stops at the first error and returns
// the ids visited so far; rows written by earlier visits are left as they are.
func walkFolders(ctx context.Context, lister folderChildLister, rootID string, visit func(folderID string) error) ([]string, error) {
	visited := make(map[string]struct{})
	order := make([]string, 0, 8)
	stack := []string{rootID}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return order, err
		}
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		if err := visit(id); err != nil {
			return order, err
		}
		order = append(order, id)

		children, err := lister.ChildIDs(ctx, id)
		if err != nil {
			return order, fmt.Errorf("list children of %s: %w", id, err)
		}
		for i := len(children) - 1; i >= 0; i-- {
			if _, seen := visited[children[i]]; !seen {
				stack = append(stack, children[i])
			}
		}
	}
	return order, nil
}
