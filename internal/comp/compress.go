// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package comp

import "github.com/golang/snappy"

// Decompress decompresses src[:srcLen] into dst, returning the
// decompressed length. It returns 0 — a signal, not an error — when src
// is not valid snappy framing or the decompressed size would exceed
// len(dst); callers fall back to delivering the original payload.
func Decompress(src []byte, srcLen int, dst []byte) uint16 {
	want, err := snappy.DecodedLen(src[:srcLen])
	if err != nil || want <= 0 || want > len(dst) {
		return 0
	}
	out, err := snappy.Decode(dst[:want], src[:srcLen])
	if err != nil || len(out) > len(dst) {
		return 0
	}
	return uint16(len(out))
}

// Compress snappy-encodes src into dst, returning the encoded length, or
// 0 if dst is shorter than snappy's worst-case encoded length for src
// (even when the actual encoding would have fit).
func Compress(src []byte, dst []byte) uint16 {
	maxLen := snappy.MaxEncodedLen(len(src))
	if maxLen < 0 || maxLen > len(dst) {
		return 0
	}
	out := snappy.Encode(dst, src)
	if len(out) > len(dst) {
		return 0
	}
	return uint16(len(out))
}
