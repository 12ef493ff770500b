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
	goerrors "errors"

	"golang.org/x/sys/unix"
	"gvisor.dev/ext2tools/pkg/errors"
)

// TranslateError finds the *errors.Error carried by from, looking through
// any wrapping added with fmt.Errorf("%w"). Bare unix.Errno values are
// converted. It returns false if no errno could be found.
func TranslateError(from error) (*errors.Error, bool) {
	var e *errors.Error
	if goerrors.As(from, &e) {
		return e, true
	}
	var errno unix.Errno
	if goerrors.As(from, &errno) {
		if e, ok := ErrorFromUnix(errno).(*errors.Error); ok {
			return e, true
		}
		return errors.New(errno, errno.Error()), true
	}
	return nil, false
}
