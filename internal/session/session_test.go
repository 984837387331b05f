// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadTo8ExtendsShortLiteralsWithTrailingZeros(t *testing.T) {
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, padTo8([]byte{1}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, padTo8([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
}

func TestPadTo8TruncatesOverlongLiterals(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, padTo8([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9}))
}

// TestLoadBiasFindsOwnTestBinaryMapping exercises loadBias against the
// current process's own /proc/self/maps: the test binary itself is always
// mapped under its own executable path, so this pins down the parsing logic
// without needing a real traced child.
func TestLoadBiasFindsOwnTestBinaryMapping(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	bias, err := loadBias(os.Getpid(), exe)
	require.NoError(t, err)
	assert.NotZero(t, bias)
}

func TestLoadBiasReturnsErrorWhenMappingNotFound(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	_, err = loadBias(os.Getpid(), exe+"-does-not-exist")
	assert.Error(t, err)
}

func TestLoadBiasReturnsErrorForUnknownPID(t *testing.T) {
	_, err := loadBias(1<<30, "/bin/anything")
	assert.Error(t, err)
}
