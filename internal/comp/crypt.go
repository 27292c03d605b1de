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

import (
	"crypto/sha1"
	"encoding/binary"

	kcp "github.com/xtaci/kcp-go/v5"
	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Salt matches the teacher's SALT constant: the PBKDF2 salt used
// while stretching the pre-shared secret into key material.
const pbkdf2Salt = "netcore"

// DeriveKey stretches a pre-shared secret into 32 bytes of key material,
// exactly as server/main.go derives its shared session key before
// calling SelectBlockCrypt. Call once per process and hand the result to
// NewCryptor; an empty passphrase still derives a (weak but
// deterministic) key rather than a nil one, matching the teacher's
// unconditional derivation.
func DeriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(pbkdf2Salt), 4096, 32, sha1.New)
}

// cryptMethod maps cipher names to their constructor and required key
// size. Mirrors the teacher's SelectBlockCrypt table so operators can
// pick any cipher kcp-go supports, not just the protocol's legacy XOR.
type cryptMethod struct {
	keySize int
	build   func(key []byte) (kcp.BlockCrypt, error)
}

var cryptMethods = map[string]cryptMethod{
	"xor":     {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSimpleXORBlockCrypt(key) }},
	"aes-128": {16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"aes-192": {24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	"salsa20": {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSalsa20BlockCrypt(key) }},
	"none":    {0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewNoneBlockCrypt(key) }},
}

// SelectBlockCrypt resolves a cipher name to a kcp.BlockCrypt. Unknown
// names fall back to the protocol's legacy "xor" cipher, reporting the
// effective name so callers can log what actually got selected.
func SelectBlockCrypt(method string, pass []byte) (kcp.BlockCrypt, string) {
	m, ok := cryptMethods[method]
	if !ok {
		block, _ := kcp.NewSimpleXORBlockCrypt(pass)
		return block, "xor"
	}
	key := pass
	if m.keySize > 0 {
		key = expandKey(pass, m.keySize)
	}
	block, err := m.build(key)
	if err != nil {
		block, _ = kcp.NewSimpleXORBlockCrypt(pass)
		return block, "xor"
	}
	return block, method
}

// expandKey stretches a short session key to exactly n bytes by
// repeating it, since the protocol's negotiated encrypt key is a single
// 32-bit value but ciphers like AES need a fixed-length key of their own.
func expandKey(pass []byte, n int) []byte {
	if len(pass) == 0 {
		return make([]byte, n)
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = pass[i%len(pass)]
	}
	return out
}

// keyBytes renders a 32-bit session encrypt key as the byte slice the
// block cipher expects, big-endian to match the wire's endianness
// discipline.
func keyBytes(key uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, key)
	return b
}

// Cryptor bundles CRC, encrypt, and decrypt behind a session's
// negotiated encrypt key; compression is the package-level
// Compress/Decompress pair, not a Cryptor method. It holds no per-datagram state and
// is safe to call concurrently from any thread, as spec'd.
type Cryptor struct {
	block kcp.BlockCrypt
}

// NewCryptor builds a Cryptor for the given session encrypt key using
// the named cipher (see SelectBlockCrypt). pskKey is the process-wide
// key material from DeriveKey(cfg.Key); when non-empty it is the
// cipher's actual key, with the session's own encryptKey folded in so
// sessions don't all share literally the same block. A nil/empty pskKey
// falls back to keying the cipher off encryptKey alone, useful for
// tests that don't care about a pre-shared secret.
func NewCryptor(method string, pskKey []byte, encryptKey uint32) *Cryptor {
	block, _ := SelectBlockCrypt(method, combineKeys(pskKey, encryptKey))
	return &Cryptor{block: block}
}

// combineKeys folds a session's 32-bit encrypt key into a copy of the
// process-wide PSK-derived key, so every session's cipher is rooted in
// the operator-supplied secret (as the teacher requires) while still
// varying per session.
func combineKeys(pskKey []byte, encryptKey uint32) []byte {
	if len(pskKey) == 0 {
		return keyBytes(encryptKey)
	}
	out := append([]byte(nil), pskKey...)
	session := keyBytes(encryptKey)
	for i := range session {
		out[i] ^= session[i]
	}
	return out
}

// CRC16 computes the keyed trailer CRC over buf[:n].
func (c *Cryptor) CRC16(buf []byte, n int, key uint32) uint16 {
	return CRC16(buf, n, key)
}

// Decrypt decrypts buf[:n] in place.
func (c *Cryptor) Decrypt(buf []byte, n int) {
	if c.block == nil {
		return
	}
	c.block.Decrypt(buf[:n], buf[:n])
}

// Encrypt encrypts buf[:n] in place.
func (c *Cryptor) Encrypt(buf []byte, n int) {
	if c.block == nil {
		return
	}
	c.block.Encrypt(buf[:n], buf[:n])
}
