package analyze

import (
	"sort"

	"github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/project"
)

// topologicalOrder returns the modules of the summary with every dependency
// preceding its dependents. A dependency absent from the summary fails with
// ModuleNotFound naming the importer; any cycle (including a self-loop) fails
// with Cycle listing the members.
func topologicalOrder(summary project.Summary) ([]project.ModuleID, error) {
	roots := make([]project.ModuleID, 0, len(summary))
	for id := range summary {
		roots = append(roots, id)
	}
	sortModuleIDs(roots)

	visited := make(map[project.ModuleID]bool, len(summary))
	onStack := make(map[project.ModuleID]bool)
	order := make([]project.ModuleID, 0, len(summary))

	var visit func(id project.ModuleID, path []project.ModuleID) error
	visit = func(id project.ModuleID, path []project.ModuleID) error {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, dep := range summary[id].Deps {
			if _, ok := summary[dep]; !ok {
				parent := id
				return errors.ModuleNotFound(dep, &parent)
			}
			if onStack[dep] {
				return errors.Cycle(cycleMembers(path, dep))
			}
			if !visited[dep] {
				if err := visit(dep, path); err != nil {
					return err
				}
			}
		}

		onStack[id] = false
		order = append(order, id)
		return nil
	}

	for _, id := range roots {
		if !visited[id] {
			if err := visit(id, nil); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

// cycleMembers slices the DFS path from the first occurrence of start, which
// is exactly the strongly-connected walk that closed the cycle.
func cycleMembers(path []project.ModuleID, start project.ModuleID) []project.ModuleID {
	for i, id := range path {
		if id == start {
			members := make([]project.ModuleID, len(path)-i)
			copy(members, path[i:])
			return members
		}
	}
	return []project.ModuleID{start}
}

func sortModuleIDs(ids []project.ModuleID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Pkg != ids[j].Pkg {
			if ids[i].Pkg.Author != ids[j].Pkg.Author {
				return ids[i].Pkg.Author < ids[j].Pkg.Author
			}
			return ids[i].Pkg.Project < ids[j].Pkg.Project
		}
		return ids[i].Name < ids[j].Name
	})
}
