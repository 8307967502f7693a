package apierr

import (
	"net/http"
	"testing"
)

func TestStatus_MapsKindsToExpectedCodes(t *testing.T) {
	cases := map[Kind]int{
		NotLeader:          http.StatusBadRequest,
		NoStagedData:       http.StatusBadRequest,
		Duplicate:          http.StatusBadRequest,
		InvalidCredentials: http.StatusUnauthorized,
		PermissionDenied:   http.StatusForbidden,
		NotFound:           http.StatusNotFound,
		StorageError:       http.StatusInternalServerError,
		NoServersAvailable: http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		if got := Status(kind); got != want {
			t.Errorf("Status(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestNew_DefaultsMessageToKind(t *testing.T) {
	err := New(NotFound, "")
	if err.Message != string(NotFound) {
		t.Errorf("expected message to default to kind, got %q", err.Message)
	}
}

func TestAs_ExtractsAPIError(t *testing.T) {
	var err error = New(PermissionDenied, "denied")
	apiErr, ok := As(err)
	if !ok || apiErr.Kind != PermissionDenied {
		t.Errorf("expected to extract PermissionDenied, got %+v ok=%v", apiErr, ok)
	}
}
