// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linuxerr

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
	"gvisor.dev/ext2tools/pkg/errors"
)

func TestTranslateError(t *testing.T) {
	distinct := errors.New(unix.ENOENT, "distinct")
	for _, tc := range []struct {
		name   string
		err    error
		want   unix.Errno
		wantOK bool
	}{
		{name: "direct", err: EEXIST, want: unix.EEXIST, wantOK: true},
		{name: "wrapped", err: fmt.Errorf("mkdir %q: %w", "/a", ENOSPC), want: unix.ENOSPC, wantOK: true},
		{name: "distinct value", err: fmt.Errorf("restore: %w", distinct), want: unix.ENOENT, wantOK: true},
		{name: "bare errno", err: fmt.Errorf("open: %w", unix.EISDIR), want: unix.EISDIR, wantOK: true},
		{name: "unknown errno", err: unix.ENOTSOCK, want: unix.ENOTSOCK, wantOK: true},
		{name: "plain", err: fmt.Errorf("boom"), wantOK: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TranslateError(tc.err)
			if ok != tc.wantOK {
				t.Fatalf("TranslateError(%v) ok = %t, want %t", tc.err, ok, tc.wantOK)
			}
			if ok && ToUnix(got) != tc.want {
				t.Errorf("TranslateError(%v) = %v, want %v", tc.err, ToUnix(got), tc.want)
			}
		})
	}
}

func TestErrorFromUnix(t *testing.T) {
	if err := ErrorFromUnix(0); err != nil {
		t.Errorf("ErrorFromUnix(0) = %v, want nil", err)
	}
	if err := ErrorFromUnix(unix.ENAMETOOLONG); err != ENAMETOOLONG {
		t.Errorf("ErrorFromUnix(ENAMETOOLONG) = %v, want %v", err, ENAMETOOLONG)
	}
}
