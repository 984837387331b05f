// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"os"
)

// fileSourceReader reads source files straight off disk, caching each
// file's lines the first time the repl asks for them so repeated source
// windows into the same function don't re-read and re-split the file.
type fileSourceReader struct {
	cache map[string][]string
}

func newFileSourceReader() *fileSourceReader {
	return &fileSourceReader{cache: make(map[string][]string)}
}

// Lines implements internal/replloop.SourceReader.
func (r *fileSourceReader) Lines(file string) ([]string, error) {
	if lines, ok := r.cache[file]; ok {
		return lines, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	r.cache[file] = lines
	return lines, nil
}
