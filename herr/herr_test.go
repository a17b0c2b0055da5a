package herr

import (
	"errors"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	err := Config("maxDepth", "must be >= 1")
	want := "configuration invalid: maxDepth: must be >= 1"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDataErrorWrapsCause(t *testing.T) {
	cause := errors.New("bad row")
	err := Data("invalid dataset", cause)
	if !errors.Is(err, cause) {
		t.Fatal("Data error must wrap its cause for errors.Is")
	}
}

func TestResourceErrWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := ResourceErr("persisting checkpoint", cause)
	if !errors.Is(err, cause) {
		t.Fatal("ResourceErr must wrap its cause for errors.Is")
	}
}

func TestIsStopDistinguishesStopFromOtherErrors(t *testing.T) {
	stopErr := Stop("callback requested early stop")
	if !IsStop(stopErr) {
		t.Fatal("IsStop(Stop(...)) must be true")
	}
	if IsStop(Config("field", "bad")) {
		t.Fatal("IsStop(Config(...)) must be false")
	}
	if IsStop(errors.New("plain error")) {
		t.Fatal("IsStop on a non-herr error must be false")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		ConfigInvalid: "configuration invalid",
		DataInvalid:   "data invalid",
		Resource:      "resource",
		Stopped:       "stopped",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
