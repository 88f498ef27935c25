package export

import (
	"testing"

	"rostercore/testutil"
)

func TestExportStaysStorageAndTransportAgnostic(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.PersistenceImportForbidden,
		"export renders records handed to it and never reads storage")
	testutil.AssertNoDirectImports(t, ".", testutil.TransportImportForbidden,
		"export produces bytes; the adapters own the HTTP surface")
}
