package domain_test

import (
	"testing"

	"curricore/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must stay free of internal packages")
}

func TestDomainHasNoStorageDrivers(t *testing.T) {
	testutil.AssertNoTransitiveImports(t, "curricore/pkg/domain", testutil.DriverImport, "domain types must not reach storage drivers")
}
