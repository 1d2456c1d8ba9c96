package sqlite

import (
	"testing"

	"editfixture/testutil"
)

func TestImportsAreDomainOrStdlib(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.ModuleImportsExcept("editfixture", "editfixture/pkg/domain"), "sqlite source depends only on the fixture model")
}
