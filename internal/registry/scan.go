package registry

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/reactivedb/reactive/internal/engineerr"
)

// declaration is one exported function found carrying a //reactive:read or
// //reactive:write marker comment.
type declaration struct {
	Name string
	Kind Kind
}

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	".git":         true,
}

// scanSourceDir statically parses every Go source file under sourceDir
// with go/parser, recognizing exported top-level functions carrying a
// //reactive:read or //reactive:write doc comment, and computes the same
// dotted endpoint name spec.md §4.6 defines: the file path relative to
// sourceDir, extension stripped, trailing "/index" stripped, separators
// replaced with ".", then "." plus the binding name.
func scanSourceDir(sourceDir string) ([]declaration, error) {
	var declarations []declaration

	err := filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if path != sourceDir && (skipDirs[name] || strings.HasSuffix(name, "_generated")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") || strings.HasSuffix(path, ".gen.go") {
			return nil
		}

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return engineerr.SchemaLoad(err, "parse endpoint source %q", path)
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return engineerr.SchemaLoad(err, "resolve relative path for %q", path)
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || fn.Doc == nil || !fn.Name.IsExported() {
				continue
			}
			kind, ok := markerKind(fn.Doc)
			if !ok {
				continue
			}
			declarations = append(declarations, declaration{
				Name: endpointName(rel, fn.Name.Name),
				Kind: kind,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return declarations, nil
}

func markerKind(doc *ast.CommentGroup) (Kind, bool) {
	for _, c := range doc.List {
		switch strings.TrimSpace(strings.TrimPrefix(c.Text, "//")) {
		case "reactive:read":
			return KindRead, true
		case "reactive:write":
			return KindWrite, true
		}
	}
	return "", false
}

// endpointName computes the dotted endpoint name spec.md §4.6 defines from
// a file path relative to the source root and an exported binding name.
func endpointName(relPath, binding string) string {
	rel := filepath.ToSlash(relPath)
	rel = strings.TrimSuffix(rel, ".go")
	rel = strings.TrimSuffix(rel, "/index")
	rel = strings.ReplaceAll(rel, "/", ".")
	return rel + "." + binding
}
