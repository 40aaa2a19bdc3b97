// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package anchor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/xopen"
)

func writeAnchors(file, query, target string, startPos bool, anchors []Anchor) error {
	fh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}
	w, err := NewWriter(fh, query, target, startPos)
	if err != nil {
		fh.Close()
		return err
	}
	if err = w.WriteAll(anchors); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func TestDiagonal(t *testing.T) {
	// forward matches on the same diagonal
	a, b := New(0, 10, 15, Forward), New(20, 30, 15, Forward)
	if a.Diag != b.Diag || a.Diag != 10 {
		t.Errorf("unexpected diagonals: %d, %d", a.Diag, b.Diag)
	}

	// reverse matches: the query moves forward, the target moves backward
	a, b = New(0, 100, 15, Reverse), New(20, 80, 15, Reverse)
	if a.Diag != b.Diag || a.Diag != 114 {
		t.Errorf("unexpected anti-diagonals: %d, %d", a.Diag, b.Diag)
	}

	if err := a.Validate(); err != nil {
		t.Error(err)
	}
	a.Diag++
	if err := a.Validate(); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}
}

func TestReadAndWrite(t *testing.T) {
	anchors := []Anchor{
		New(0, 0, 4, Forward),
		New(0, 4, 4, Forward),
		New(0, 8, 4, Forward),
		New(12, 300, 15, Reverse),
	}

	for _, name := range []string{"anchors.tsv", "anchors.tsv.gz"} {
		file := filepath.Join(t.TempDir(), name)
		if err := writeAnchors(file, "query.fa", "target.fa", false, anchors); err != nil {
			t.Error(err)
			return
		}

		r, err := NewReader(file)
		if err != nil {
			t.Error(err)
			return
		}
		if r.Query != "query.fa" || r.Target != "target.fa" {
			t.Errorf("unexpected header: %s, %s", r.Query, r.Target)
		}
		anchors2, err := r.ReadAll()
		if err != nil {
			t.Error(err)
			return
		}
		if len(anchors2) != len(anchors) {
			t.Errorf("number of anchors unmatched: %d vs %d", len(anchors2), len(anchors))
			return
		}
		for i := range anchors {
			if anchors[i] != anchors2[i] {
				t.Errorf("anchors unmatched: %v vs %v", anchors2[i], anchors[i])
			}
		}
	}
}

func TestRoundTripBytes(t *testing.T) {
	dir := t.TempDir()
	content := "#q.fa\tt.fa\n3\t7\t15\t0\t4\n10\t20\t15\t1\t44\n"
	file := filepath.Join(dir, "a.tsv")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Error(err)
		return
	}

	r, err := NewReader(file)
	if err != nil {
		t.Error(err)
		return
	}
	anchors, err := r.ReadAll()
	if err != nil {
		t.Error(err)
		return
	}

	file2 := filepath.Join(dir, "b.tsv")
	if err = writeAnchors(file2, r.Query, r.Target, false, anchors); err != nil {
		t.Error(err)
		return
	}

	data, err := os.ReadFile(file2)
	if err != nil {
		t.Error(err)
		return
	}
	if string(data) != content {
		t.Errorf("unmatched content:\n%s\nexpected:\n%s", data, content)
	}
}

func TestReadInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		content string
		line    int
	}{
		{"\n\n", 2},                                  // no header
		{"#q\tt\n0\t0\t4\t0\n", 2},                   // 4 columns
		{"#q\tt\n0\t0\t4\t0\t0\t1\n", 2},             // 6 columns
		{"#q\tt\n0\t0\t4\t0\t0\n0\tx\t4\t0\t0\n", 3}, // not integer
		{"#q\tt\n0\t0\t4\t2\t0\n", 2},                // invalid strand
		{"#q\tt\n0\t5\t4\t0\t4\n", 2},                // invalid diagonal
	}

	for i, c := range cases {
		file := filepath.Join(dir, "a.tsv")
		if err := os.WriteFile(file, []byte(c.content), 0644); err != nil {
			t.Error(err)
			return
		}

		var err error
		r, err := NewReader(file)
		if err == nil {
			_, err = r.ReadAll()
		}
		if !errors.Is(err, util.ErrInvalidInput) {
			t.Errorf("case %d: expected invalid input error, got %v", i, err)
			continue
		}
		if !strings.Contains(err.Error(), file) {
			t.Errorf("case %d: file name missing in the error message: %s", i, err)
		}
		t.Logf("case %d: %s", i, err)
	}
}

func TestHeaderIgnored(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.tsv")
	content := "qbegin\ttbegin\tlen\tstrand\tdiag\n0\t0\t4\t0\t0\n4\t8\t4\t0\t4\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Error(err)
		return
	}

	r, err := NewReader(file)
	if err != nil {
		t.Error(err)
		return
	}
	if r.Query != "" || r.Target != "" {
		t.Errorf("no names expected from a header without '#': %q %q", r.Query, r.Target)
	}
	anchors, err := r.ReadAll()
	if err != nil {
		t.Error(err)
		return
	}
	if len(anchors) != 2 || anchors[1] != New(4, 8, 4, Forward) {
		t.Errorf("unexpected anchors: %v", anchors)
	}
}

func TestWriteStartPos(t *testing.T) {
	file := filepath.Join(t.TempDir(), "startpos.tsv")
	err := writeAnchors(file, "q", "t", true, []Anchor{New(3, 7, 15, Forward), New(3, 100, 15, Reverse)})
	if err != nil {
		t.Error(err)
		return
	}

	data, _ := os.ReadFile(file)
	expected := "#q\tt\n3\t7\n17\t100\n"
	if string(data) != expected {
		t.Errorf("unmatched content:\n%s\nexpected:\n%s", data, expected)
	}
}
