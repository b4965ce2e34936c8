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

package ioutils

// CountWriter is an `io.Writer` that discards its input and records
// how many bytes were written to it. It is typically used on one leg
// of an `io.MultiWriter` to measure a stream while it is consumed.
type CountWriter struct {
	size int64
}

// Write records the length of b and reports it as written.
func (c *CountWriter) Write(b []byte) (int, error) {
	n := len(b)
	c.size += int64(n)
	return n, nil
}

// Size is the total number of bytes written so far.
func (c *CountWriter) Size() int64 {
	return c.size
}
