// Package noexit defines an analyzer that reports calls terminating the process
// directly from main.main: os.Exit and the log.Fatal family. Such calls skip
// deferred functions, so the storage would not be flushed and the logger not synced.
package noexit

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "noexit",
	Doc:  "reports os.Exit and log.Fatal* calls in main.main",
	Run:  run,
}

var forbidden = map[string]map[string]bool{
	"os":  {"Exit": true},
	"log": {"Fatal": true, "Fatalf": true, "Fatalln": true},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		if ast.IsGenerated(file) {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
				continue
			}

			ast.Inspect(fn.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}

				callee, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
				if !ok || callee.Pkg() == nil {
					return true
				}

				if forbidden[callee.Pkg().Path()][callee.Name()] {
					pass.Reportf(call.Pos(), "%s.%s called in main.main skips deferred calls", callee.Pkg().Name(), callee.Name())
				}

				return true
			})
		}
	}

	return nil, nil
}
