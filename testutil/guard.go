// Package testutil holds the architecture guards package tests use to keep
// layer boundaries: the domain stays free of internal packages and the
// storage and reconciliation layers only reach the packages they are meant to.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// ModulePath is the import path prefix of this module.
const ModulePath = "curricore"

// AssertNoDirectImports parses the non-test .go files in dir and fails when
// an import matches forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	failIfViolations(t, reason, viols)
}

// InternalImportForbidden matches any of this module's internal packages.
func InternalImportForbidden(path string) bool {
	return strings.HasPrefix(path, ModulePath+"/internal/")
}

// ModuleImportsExcept matches module imports not listed in allowed.
// Standard library and third-party imports never match.
func ModuleImportsExcept(allowed ...string) func(string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(path string) bool {
		if path != ModulePath && !strings.HasPrefix(path, ModulePath+"/") {
			return false
		}
		_, ok := set[path]
		return !ok
	}
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, err
			}
			if forbidden(path) {
				viols = append(viols, path+" (in "+name+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// AssertNoTransitiveImports loads pattern with its dependency graph and fails
// when any reachable package matches forbidden.
func AssertNoTransitiveImports(t testing.TB, pattern string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := transitiveImportViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("load %s: %v", pattern, err)
	}
	failIfViolations(t, reason, viols)
}

// DriverImport matches the database drivers the draft stores use.
func DriverImport(path string) bool {
	for _, prefix := range []string{"modernc.org/sqlite", "github.com/jackc/pgx", "github.com/redis/go-redis"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func transitiveImportViolations(pattern string, forbidden func(importPath string) bool) ([]string, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	roots, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, err
	}
	if packages.PrintErrors(roots) > 0 {
		return nil, fmt.Errorf("package errors loading %s", pattern)
	}
	var viols []string
	packages.Visit(roots, nil, func(p *packages.Package) {
		for path := range p.Imports {
			if forbidden(path) {
				viols = append(viols, path+" (via "+p.PkgPath+")")
			}
		}
	})
	sort.Strings(viols)
	return viols, nil
}
