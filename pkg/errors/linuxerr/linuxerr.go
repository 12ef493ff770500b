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

// Package linuxerr contains syscall error codes exported as error interface
// pointers. This allows for fast comparison and return operations comparable
// to unix.Errno constants.
package linuxerr

import (
	"golang.org/x/sys/unix"
	"gvisor.dev/ext2tools/pkg/errors"
)

// The following errors are semantically identical to the unix.Errno values
// of the same name. Since they are *errors.Error values they are compared by
// identity.
var (
	ENOENT       = errors.New(unix.ENOENT, "no such file or directory")
	EIO          = errors.New(unix.EIO, "I/O error")
	EBUSY        = errors.New(unix.EBUSY, "device or resource busy")
	EEXIST       = errors.New(unix.EEXIST, "file exists")
	ENOTDIR      = errors.New(unix.ENOTDIR, "not a directory")
	EISDIR       = errors.New(unix.EISDIR, "is a directory")
	EINVAL       = errors.New(unix.EINVAL, "invalid argument")
	EFBIG        = errors.New(unix.EFBIG, "file too large")
	ENOSPC       = errors.New(unix.ENOSPC, "no space left on device")
	EROFS        = errors.New(unix.EROFS, "read-only file system")
	EMLINK       = errors.New(unix.EMLINK, "too many links")
	ENAMETOOLONG = errors.New(unix.ENAMETOOLONG, "file name too long")
)

var errorSlice = []*errors.Error{
	unix.ENOENT:       ENOENT,
	unix.EIO:          EIO,
	unix.EBUSY:        EBUSY,
	unix.EEXIST:       EEXIST,
	unix.ENOTDIR:      ENOTDIR,
	unix.EISDIR:       EISDIR,
	unix.EINVAL:       EINVAL,
	unix.EFBIG:        EFBIG,
	unix.ENOSPC:       ENOSPC,
	unix.EROFS:        EROFS,
	unix.EMLINK:       EMLINK,
	unix.ENAMETOOLONG: ENAMETOOLONG,
}

// ErrorFromUnix returns a linuxerr from a unix.Errno. Errnos without a
// dedicated value are returned unchanged.
func ErrorFromUnix(err unix.Errno) error {
	if err == unix.Errno(0) {
		return nil
	}
	if int(err) < len(errorSlice) {
		if e := errorSlice[err]; e != nil {
			return e
		}
	}
	return err
}

// ToUnix converts a linuxerr to a unix.Errno.
func ToUnix(e *errors.Error) unix.Errno {
	var unixErr unix.Errno
	if e != nil {
		unixErr = e.Errno()
	}
	return unixErr
}
