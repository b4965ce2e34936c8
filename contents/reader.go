/*
   Copyright The Debrepbuild Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package contents

import "io"

// recordReader streams records as Contents lines without materializing
// the whole index. Each record serializes as "<path>  <pkg>\n".
type recordReader struct {
	records []record
	// buf holds the unread tail of the current line.
	buf []byte
}

func newRecordReader(records []record) *recordReader {
	return &recordReader{records: records}
}

func (r *recordReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := 0
	for n < len(p) {
		if len(r.buf) == 0 {
			if len(r.records) == 0 {
				if n == 0 {
					return 0, io.EOF
				}
				return n, nil
			}
			next := r.records[0]
			r.records = r.records[1:]
			r.buf = append(r.buf[:0], next.path...)
			r.buf = append(r.buf, "  "...)
			r.buf = append(r.buf, next.pkg...)
			r.buf = append(r.buf, '\n')
		}
		copied := copy(p[n:], r.buf)
		r.buf = r.buf[copied:]
		n += copied
	}
	return n, nil
}
