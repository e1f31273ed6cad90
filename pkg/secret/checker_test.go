package secret

import (
	"errors"
	"testing"
)

// small parameters keep the tests fast.
var testParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32}

func TestArgon2Checker(t *testing.T) {
	checker, err := NewArgon2Checker(FromKnown([]byte("correct horse")), testParams)
	if nil != err {
		t.Fatalf("failed NewArgon2Checker, got error %v", err)
	}
	if 32 != len(checker.Key) {
		t.Errorf("unexpected key size %d", len(checker.Key))
	}

	testcases := []struct {
		password *Password
		accept   bool
	}{
		{password: FromKnown([]byte("correct horse")), accept: true},
		{password: FromKnown([]byte("correct horsE")), accept: false},
		{password: FromKnown([]byte{}), accept: false},
		{password: Unknown(), accept: false},
	}
	for pos, tc := range testcases {
		if tc.accept != checker.Check(tc.password) {
			t.Errorf("#%d: Check returned %v", pos, !tc.accept)
		}
		if tc.password.IsKnown() {
			t.Errorf("#%d: Check did not consume the password", pos)
		}
	}
}

func TestArgon2CheckerUnknown(t *testing.T) {
	_, err := NewArgon2Checker(Unknown(), testParams)
	if !errors.Is(err, Error) {
		t.Errorf("NewArgon2Checker accepted an unknown password, got error %v", err)
	}
}

func TestArgon2ParamsCheck(t *testing.T) {
	invalids := []Argon2Params{
		{Time: 0, Memory: 64, Threads: 1, KeyLen: 32},
		{Time: 1, Memory: 64, Threads: 0, KeyLen: 32},
		{Time: 1, Memory: 7, Threads: 1, KeyLen: 32},
		{Time: 1, Memory: 64, Threads: 1, KeyLen: 8},
	}
	for pos, params := range invalids {
		err := params.Check()
		if !errors.Is(err, ErrorParameters) {
			t.Errorf("#%d: Check did not fail with ErrorParameters, got %v", pos, err)
		}
		_, err = NewArgon2Checker(FromKnown([]byte("pw")), params)
		if !errors.Is(err, ErrorParameters) {
			t.Errorf("#%d: NewArgon2Checker did not fail with ErrorParameters, got %v", pos, err)
		}
	}
	if err := DefaultArgon2Params.Check(); nil != err {
		t.Errorf("DefaultArgon2Params are invalid, got error %v", err)
	}
}
