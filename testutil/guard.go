// Package testutil holds test helpers that keep package layering honest: the
// fixture model and the in-memory store must never reach storage drivers, and
// adapters may only depend on the packages they are meant to.
package testutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// AssertNoDirectImports loads the package in dir with the current build
// context and fails if any of its imports satisfies forbidden. Test files are
// not considered.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	pkg, err := loadPackage(dir, packages.NeedName|packages.NeedImports)
	if err != nil {
		t.Fatalf("load %s: %v", dir, err)
	}
	var viols []string
	for path := range pkg.Imports {
		if forbidden(path) {
			viols = append(viols, path+" (in "+pkg.PkgPath+")")
		}
	}
	sort.Strings(viols)
	failIfViolations(t, "forbidden direct imports", reason, viols)
}

// AssertNoModuleDependency follows imports of dir through every package of the
// enclosing module and fails if any reached import path satisfies forbidden.
// Imports outside the module are checked but not followed.
func AssertNoModuleDependency(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	reached, err := ReachableImports(dir)
	if err != nil {
		t.Fatalf("walk imports of %s: %v", dir, err)
	}
	var viols []string
	for _, imp := range reached {
		if forbidden(imp) {
			viols = append(viols, imp)
		}
	}
	failIfViolations(t, "forbidden module dependency", reason, viols)
}

// ReachableImports returns, sorted and deduplicated, every import path reached
// from the package in dir by following module-local imports. Files excluded by
// build constraints do not contribute.
func ReachableImports(dir string) ([]string, error) {
	root, err := loadPackage(dir, packages.NeedName|packages.NeedImports|packages.NeedDeps|packages.NeedModule)
	if err != nil {
		return nil, err
	}
	if root.Module == nil {
		return nil, fmt.Errorf("%s is not inside a module", dir)
	}
	module := root.Module.Path
	seen := map[string]bool{}
	var visit func(p *packages.Package)
	visit = func(p *packages.Package) {
		for path, imp := range p.Imports {
			if seen[path] {
				continue
			}
			seen[path] = true
			if path == module || strings.HasPrefix(path, module+"/") {
				visit(imp)
			}
		}
	}
	visit(root)
	out := make([]string, 0, len(seen))
	for imp := range seen {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out, nil
}

func loadPackage(dir string, mode packages.LoadMode) (*packages.Package, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	pkgs, err := packages.Load(&packages.Config{Mode: mode, Dir: abs}, ".")
	if err != nil {
		return nil, err
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("%s: expected one package, got %d", dir, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		errs := make([]error, 0, len(pkg.Errors))
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
		return nil, errors.Join(errs...)
	}
	return pkg, nil
}

// InternalImportForbidden matches any import path containing /internal/.
func InternalImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/")
}

var storagePrefixes = []string{
	"database/sql",
	"modernc.org/sqlite",
	"github.com/jackc/pgx",
	"github.com/aws/aws-sdk-go-v2",
}

// StorageImportForbidden matches database/sql, the SQL drivers and the AWS SDK.
func StorageImportForbidden(path string) bool {
	for _, prefix := range storagePrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// ModuleImportsExcept matches imports of module packages other than allowed.
// Paths outside module never match.
func ModuleImportsExcept(module string, allowed ...string) func(string) bool {
	ok := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	return func(path string) bool {
		if path != module && !strings.HasPrefix(path, module+"/") {
			return false
		}
		_, fine := ok[path]
		return !fine
	}
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfViolations(t fatalLogger, what, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("%s detected (%s):\n%s", what, reason, strings.Join(viols, "\n"))
	}
}
