// Package deadcode drops unused top-level declarations from an
// already-analyzed AST, warning on each one it removes.
package deadcode

import (
	"fmt"

	"github.com/FernandoTheDev/farpy-sub000/internal/domain"
)

// Analyzer removes top-level FunctionDeclaration/VariableDeclaration
// nodes whose name never appears in the used set gathered during
// semantic analysis. Only the program's direct children are considered;
// declarations nested inside blocks are always kept.
type Analyzer struct {
	arena    *domain.Arena
	reporter domain.Reporter
	used     map[string]bool
}

func New(arena *domain.Arena, reporter domain.Reporter, used map[string]bool) *Analyzer {
	return &Analyzer{arena: arena, reporter: reporter, used: used}
}

// Run rewrites program's top-level Children in place, dropping the dead
// ones, and returns how many were removed.
func (a *Analyzer) Run(program domain.NodeRef) int {
	prog := a.arena.Get(program)
	kept := make([]domain.NodeRef, 0, len(prog.Children))
	removed := 0

	for _, ref := range prog.Children {
		n := a.arena.Get(ref)
		if a.isRemovable(n) {
			removed++
			a.reporter.Report(domain.NewWarning(domain.SemanticError,
				fmt.Sprintf("unused top-level declaration '%s' removed by dead-code elimination", n.Name),
				n.Loc, "dead-code analysis"))
			continue
		}
		kept = append(kept, ref)
	}

	prog.Children = kept
	return removed
}

// isRemovable reports whether n is a top-level function or variable
// declaration whose name was never referenced.
func (a *Analyzer) isRemovable(n *domain.Node) bool {
	switch n.Kind {
	case domain.NodeFunctionDeclaration:
		if n.Name == "main" {
			return false // the entry point has no caller to be "used" by
		}
		return !a.used[n.Name]
	case domain.NodeVariableDeclaration:
		return !a.used[n.Name]
	default:
		return false
	}
}
